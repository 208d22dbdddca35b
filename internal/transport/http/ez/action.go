package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-service/internal/domain"
	resp "user-service/internal/transport/http/response"
)

// EZ is a thin wrapper over a router group that registers typed actions.
type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

func (e EZ) Group(path string, mw ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, mw...), log: e.log}
}

// Binder selects where the action input comes from.
type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // handler reads c.Param itself
)

// AErr forces a status and message at the boundary, bypassing the sentinel mapping.
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: http.StatusBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: http.StatusUnauthorized, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: http.StatusNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: http.StatusInternalServerError, Msg: msg, Err: err}
}

// Action describes one endpoint: I is the bound input, O the JSON output.
type Action[I any, O any] struct {
	Method string
	Path   string
	Binder Binder
	// Status on success; 200 when zero.
	Status int
	// FailMsg is sent with unmapped (500) errors; the error itself is only logged.
	FailMsg string
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction mounts a on e.
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			var mbe *http.MaxBytesError
			if errors.As(bindErr, &mbe) {
				c.JSON(http.StatusRequestEntityTooLarge, resp.Error(http.StatusRequestEntityTooLarge, ""))
				return
			}
			c.JSON(http.StatusBadRequest, resp.Error(http.StatusBadRequest, "invalid request body"))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			status, msg := e.mapError(c, a.Path, a.FailMsg, err)
			c.JSON(status, resp.Error(status, msg))
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

func (e EZ) mapError(c *gin.Context, path, failMsg string, err error) (int, string) {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code >= http.StatusInternalServerError {
			e.logFailure(c, path, err)
			if ae.Msg == "" {
				return ae.Code, failMsg
			}
		}
		return ae.Code, ae.Error()
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAuth):
		return http.StatusBadRequest, detail(err)
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, err.Error()
	}

	e.logFailure(c, path, err)
	return http.StatusInternalServerError, failMsg
}

func (e EZ) logFailure(c *gin.Context, path string, err error) {
	e.log.Error("action failed",
		zap.String("path", path),
		zap.String("rid", c.GetString("X-Request-ID")),
		zap.Error(err),
	)
}

// detail strips the sentinel prefix ("validation error: ") so only the specific text reaches the client.
func detail(err error) string {
	msg := err.Error()
	for _, s := range []error{domain.ErrValidation, domain.ErrConflict, domain.ErrAuth} {
		if p := s.Error() + ": "; strings.HasPrefix(msg, p) {
			return strings.TrimPrefix(msg, p)
		}
	}
	return msg
}
