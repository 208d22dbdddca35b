// Package dispatch calls sibling services by logical name.
//
// Addresses come from a static registry fixed at construction. Every failure, whether the
// transport broke, the call timed out or the upstream answered non-2xx, comes back as one
// *UpstreamError so callers never handle raw transport errors.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"user-service/internal/domain"
)

const (
	DefaultTimeout = 5 * time.Second
	GenericMessage = "Internal Service Error"

	// responses larger than this are treated as an upstream failure
	maxResponseBytes = 8 << 20
)

// KeyRequestID is the header forwarded to sibling services.
const KeyRequestID = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID makes Call forward id as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

type Service int

const (
	Users Service = iota + 1
	Discussions
	Comments
)

var serviceNames = map[Service]string{
	Users:       "user-service",
	Discussions: "discussion-service",
	Comments:    "comment-service",
}

// Services lists every known sibling.
func Services() []Service { return []Service{Users, Discussions, Comments} }

func (s Service) String() string {
	if n, ok := serviceNames[s]; ok {
		return n
	}
	return fmt.Sprintf("service(%d)", int(s))
}

func ParseService(name string) (Service, error) {
	for s, n := range serviceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown service %q", name)
}

type UpstreamError struct {
	Service Service
	Status  int // 0 when no response arrived
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Is(target error) bool { return target == domain.ErrUpstream }

// Registry maps every Service to its base URL. Build it with NewRegistry.
type Registry struct {
	base map[Service]string
}

// NewRegistry validates addrs, keyed by the services' logical names.
// Every known service must have an absolute http(s) URL; unknown names are rejected.
func NewRegistry(addrs map[string]string) (Registry, error) {
	r := Registry{base: make(map[Service]string, len(serviceNames))}
	for name, raw := range addrs {
		s, err := ParseService(name)
		if err != nil {
			return Registry{}, err
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Registry{}, fmt.Errorf("service %s: invalid base url %q", name, raw)
		}
		r.base[s] = strings.TrimRight(raw, "/")
	}
	for _, s := range Services() {
		if _, ok := r.base[s]; !ok {
			return Registry{}, fmt.Errorf("service %s: no address configured", s)
		}
	}
	return r, nil
}

func (r Registry) BaseURL(s Service) (string, bool) {
	u, ok := r.base[s]
	return u, ok
}

var upstreamTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "upstream_requests_total", Help: "Count of calls to sibling services"},
	[]string{"service", "outcome"},
)

func init() { prometheus.MustRegister(upstreamTotal) }

type Dispatcher struct {
	reg     Registry
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger
}

type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option { return func(d *Dispatcher) { d.client = c } }

func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = l } }

func New(reg Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:     reg,
		client:  &http.Client{},
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Call sends method path (relative to the service's base URL) with body JSON-encoded when non-nil,
// and returns the upstream body untouched on 2xx.
func (d *Dispatcher) Call(ctx context.Context, svc Service, method, path string, body any) (json.RawMessage, error) {
	out, err := d.call(ctx, svc, method, path, body)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		var ue *UpstreamError
		if errors.As(err, &ue) {
			d.log.Warn("upstream call failed",
				zap.Stringer("service", svc),
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", ue.Status),
				zap.String("message", ue.Message),
			)
		}
	}
	upstreamTotal.WithLabelValues(svc.String(), outcome).Inc()
	return out, err
}

func (d *Dispatcher) call(ctx context.Context, svc Service, method, path string, body any) (json.RawMessage, error) {
	fail := func(status int, msg string) error {
		if msg == "" {
			msg = GenericMessage
		}
		return &UpstreamError{Service: svc, Status: status, Message: msg}
	}

	base, ok := d.reg.BaseURL(svc)
	if !ok {
		return nil, fail(0, "")
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			d.log.Error("encode upstream body", zap.Stringer("service", svc), zap.Error(err))
			return nil, fail(0, "")
		}
		rd = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), base+path, rd)
	if err != nil {
		return nil, fail(0, "")
	}
	req.Header.Set("Accept", "application/json")
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok && rid != "" {
		req.Header.Set(KeyRequestID, rid)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Debug("upstream transport error", zap.Stringer("service", svc), zap.Error(err))
		return nil, fail(0, "")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil || len(b) > maxResponseBytes {
		return nil, fail(resp.StatusCode, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, upstreamMessage(b))
	}
	return json.RawMessage(b), nil
}

// upstreamMessage pulls message (or error) out of a JSON error body.
func upstreamMessage(b []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
