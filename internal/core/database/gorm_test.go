package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewGorm_SQLite(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file::memory:", LogLevel: "silent", Log: zap.NewNop()})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name, in, user, pass, want string
	}{
		{"native passthrough", "u:p@tcp(db:3306)/users", "", "", "u:p@tcp(db:3306)/users"},
		{"url", "mysql://u:p@db:3306/users", "", "", "u:p@tcp(db:3306)/users?charset=utf8mb4&parseTime=true"},
		{"jdbc with overrides", "jdbc:mysql://db:3306/users?charset=latin1", "root", "pw", "root:pw@tcp(db:3306)/users?charset=latin1&parseTime=true"},
		{"empty", "", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeMySQLDSN(tc.in, tc.user, tc.pass))
		})
	}
}
