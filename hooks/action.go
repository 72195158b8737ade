package hooks

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/version"
)

// single is embedded by hooks of which one instance may be active.
type single struct{}

func (single) AllowMultiple() bool { return false }

// multiple is embedded by hooks that may repeat.
type multiple struct{}

func (multiple) AllowMultiple() bool { return true }

// Host sets the base address relative paths resolve against.
type Host struct {
	single
	URL *url.URL
}

// NewHost parses an absolute base address. A path without a trailing
// slash gets one, so "https://x/v1" + "users" is "https://x/v1/users".
func NewHost(raw string) (*Host, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("host: %q is not an absolute address", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Host{URL: u}, nil
}

func (*Host) HookKey() string { return contract.TagHost }

func (h *Host) OnRequest(cc *contract.CallContext) error {
	u := *h.URL
	cc.Request.BaseURL = &u
	return nil
}

// Header adds a fixed header.
type Header struct {
	multiple
	Name  string
	Value string
}

// NewHeader parses "Name: value".
func NewHeader(pair string) (*Header, error) {
	name, value, ok := strings.Cut(pair, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, fmt.Errorf("header: expected Name: value, got %q", pair)
	}
	return &Header{Name: name, Value: strings.TrimSpace(value)}, nil
}

func (h *Header) OnRequest(cc *contract.CallContext) error {
	cc.Request.Header.Add(h.Name, h.Value)
	return nil
}

// Timeout sets the per-call timeout.
type Timeout struct {
	single
	Duration time.Duration
}

// NewTimeout parses a time.ParseDuration value.
func NewTimeout(raw string) (*Timeout, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("timeout: invalid duration %q", raw)
	}
	return &Timeout{Duration: d}, nil
}

func (*Timeout) HookKey() string { return contract.TagTimeout }

func (t *Timeout) OnRequest(cc *contract.CallContext) error {
	cc.Timeout = t.Duration
	return nil
}

// PropRequestID is the property holding the request id.
const PropRequestID = "request_id"

// RequestID sets a random request id header unless one is present.
type RequestID struct {
	single
	Header string
}

func (r *RequestID) OnRequest(cc *contract.CallContext) error {
	name := r.Header
	if name == "" {
		name = "X-Request-ID"
	}
	id := cc.Request.Header.Get(name)
	if id == "" {
		id = uuid.NewString()
		cc.Request.Header.Set(name, id)
	}
	cc.Properties.Set(PropRequestID, id)
	return nil
}

// UserAgent sets the User-Agent header.
type UserAgent struct {
	single
	Value string
}

func (u *UserAgent) OnRequest(cc *contract.CallContext) error {
	v := u.Value
	if v == "" {
		v = version.UserAgent()
	}
	cc.Request.Header.Set("User-Agent", v)
	return nil
}

// Auth adds credentials from a token source or a static configuration.
type Auth struct {
	single
	Source auth.TokenSource
	Config *httpclient.AuthConfig
}

func (*Auth) HookKey() string { return "auth" }

func (a *Auth) OnRequest(cc *contract.CallContext) error {
	if a.Source == nil {
		a.Config.ApplyTo(cc.Request)
		return nil
	}
	tok, err := a.Source.Token(cc.Context)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	cc.Request.Header.Set("Authorization", tok.Header())
	return nil
}
