package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/domain"
)

func registryFor(t *testing.T, discussions string) Registry {
	t.Helper()
	reg, err := NewRegistry(map[string]string{
		"user-service":       "http://user-service:5000/api",
		"discussion-service": discussions,
		"comment-service":    "http://comment-service:5002/api",
	})
	require.NoError(t, err)
	return reg
}

func requireUpstream(t *testing.T, err error) *UpstreamError {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	return ue
}

func TestCall_PassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/posts/42/comments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "rid-1", r.Header.Get(KeyRequestID))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"text":"hi"}`, string(b))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"c1","extra":[1,2]}`))
	}))
	defer srv.Close()

	d := New(registryFor(t, srv.URL+"/api/"))
	ctx := WithRequestID(context.Background(), "rid-1")
	out, err := d.Call(ctx, Discussions, "post", "/posts/42/comments", map[string]string{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"c1","extra":[1,2]}`, string(out))
}

func TestCall_NoBodyOnGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get(KeyRequestID))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	out, err := New(registryFor(t, srv.URL)).Call(context.Background(), Discussions, http.MethodGet, "/posts", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[]`), out)
}

func TestCall_RelaysUpstreamMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusNotFound, `{"message":"Post not found"}`, "Post not found"},
		{"error field", http.StatusBadRequest, `{"error":"bad post"}`, "bad post"},
		{"html body", http.StatusBadGateway, `<html>oops</html>`, GenericMessage},
		{"empty body", http.StatusInternalServerError, ``, GenericMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(registryFor(t, srv.URL)).Call(context.Background(), Discussions, http.MethodGet, "/posts/42", nil)
			ue := requireUpstream(t, err)
			assert.Equal(t, tc.want, ue.Message)
			assert.Equal(t, tc.status, ue.Status)
			assert.Equal(t, Discussions, ue.Service)
		})
	}
}

func TestCall_UnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(registryFor(t, addr)).Call(context.Background(), Discussions, http.MethodGet, "/posts/42", nil)
	ue := requireUpstream(t, err)
	assert.Equal(t, GenericMessage, ue.Message)
	assert.Zero(t, ue.Status)
	assert.Equal(t, GenericMessage, err.Error())
}

func TestCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := New(registryFor(t, srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := d.Call(context.Background(), Discussions, http.MethodGet, "/slow", nil)
	ue := requireUpstream(t, err)
	assert.Equal(t, GenericMessage, ue.Message)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCall_UnknownServiceValue(t *testing.T) {
	d := New(registryFor(t, "http://discussion-service:5001/api"))
	_, err := d.Call(context.Background(), Service(99), http.MethodGet, "/x", nil)
	ue := requireUpstream(t, err)
	assert.Equal(t, GenericMessage, ue.Message)
}

func TestCall_UnencodableBody(t *testing.T) {
	d := New(registryFor(t, "http://discussion-service:5001/api"))
	_, err := d.Call(context.Background(), Discussions, http.MethodPost, "/x", make(chan int))
	requireUpstream(t, err)
}

func TestNewRegistry(t *testing.T) {
	full := map[string]string{
		"user-service":       "http://user-service:5000/api",
		"discussion-service": "http://discussion-service:5001/api/",
		"comment-service":    "https://comment-service:5002/api",
	}
	reg, err := NewRegistry(full)
	require.NoError(t, err)
	base, ok := reg.BaseURL(Discussions)
	assert.True(t, ok)
	assert.Equal(t, "http://discussion-service:5001/api", base)

	missing := map[string]string{"user-service": "http://u"}
	_, err = NewRegistry(missing)
	assert.ErrorContains(t, err, "no address configured")

	unknown := map[string]string{"billing-service": "http://b"}
	_, err = NewRegistry(unknown)
	assert.ErrorContains(t, err, "unknown service")

	bad := map[string]string{
		"user-service":       "user-service:5000",
		"discussion-service": "http://d",
		"comment-service":    "http://c",
	}
	_, err = NewRegistry(bad)
	assert.ErrorContains(t, err, "invalid base url")
}

func TestServiceNames(t *testing.T) {
	for _, s := range Services() {
		parsed, err := ParseService(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "service(7)", Service(7).String())
}
