package contract

import (
	"context"
	"time"

	"github.com/kbukum/apikit/codec"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/logger"
)

// Properties carries values between hooks of one call.
type Properties map[string]any

// Get returns the value stored under key.
func (p Properties) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// Set stores v under key.
func (p Properties) Set(key string, v any) { p[key] = v }

// CallContext is the mutable state of one call. It is owned by the call
// and never shared.
type CallContext struct {
	// Context is cancelled when the call's deadline passes.
	Context context.Context
	Action  *BoundAction
	Request *httpclient.RequestMessage
	// Response is set after send or a cache hit.
	Response *httpclient.Response
	// Err is the send error, visible to end filters.
	Err error
	// Result is the extracted result.
	Result any
	// Timeout overrides the default per-call timeout when positive.
	Timeout time.Duration
	// CacheKey is set by the cache read stage.
	CacheKey   string
	Properties Properties
	Codecs     *codec.Registry
	Log        *logger.Logger
}

// NewCallContext prepares the state for one call of bound.
func NewCallContext(bound *BoundAction, codecs *codec.Registry, log *logger.Logger) *CallContext {
	req := httpclient.NewRequestMessage()
	req.Method = bound.Method
	req.Path = bound.Path
	if log == nil {
		log = logger.NewNop()
	}
	return &CallContext{
		Context:    bound.Context(),
		Action:     bound,
		Request:    req,
		Properties: Properties{},
		Codecs:     codecs,
		Log:        log,
	}
}

// Operation returns the operation being called.
func (cc *CallContext) Operation() *Operation { return cc.Action.Operation }
