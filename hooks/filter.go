package hooks

import (
	"net/http"
	"time"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/contract"
	"github.com/kbukum/apikit/logger"
)

const propStart = "hooks.start"

// LoggingFilter logs every call once it finishes.
type LoggingFilter struct {
	single
	Log *logger.Logger
	now func() time.Time
}

// NewLoggingFilter creates a filter writing to log, or to the call's
// logger when log is nil.
func NewLoggingFilter(log *logger.Logger) *LoggingFilter {
	return &LoggingFilter{Log: log, now: time.Now}
}

func (f *LoggingFilter) OnBegin(cc *contract.CallContext) error {
	cc.Properties.Set(propStart, f.clock())
	return nil
}

func (f *LoggingFilter) OnEnd(cc *contract.CallContext) error {
	log := f.Log
	if log == nil {
		log = cc.Log
	}
	fields := logger.CallFields(cc.Operation().Contract.Name, cc.Operation().Name)
	fields[logger.FieldMethod] = cc.Request.Method
	if u, err := cc.Request.URL(); err == nil {
		fields[logger.FieldURL] = u.Redacted()
	}
	if start, ok := cc.Properties[propStart].(time.Time); ok {
		fields = logger.WithDuration(fields, f.clock().Sub(start))
	}
	if id, ok := cc.Properties[PropRequestID]; ok {
		fields[logger.FieldRequestID] = id
	}
	if cc.Response != nil {
		fields[logger.FieldStatus] = cc.Response.StatusCode
		fields[logger.FieldCacheHit] = cc.Response.FromCache
	}
	switch {
	case cc.Err != nil:
		fields[logger.FieldError] = cc.Err
		log.Warn("call failed", fields)
	case cc.Response != nil && !cc.Response.IsSuccess():
		log.Warn("call returned an error status", fields)
	default:
		log.Debug("call completed", fields)
	}
	return nil
}

func (f *LoggingFilter) clock() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}

// TokenFilter authorizes calls with a token source. A 401 response drops
// the cached token so the next attempt, for example from a Retry
// decorator, fetches a fresh one.
type TokenFilter struct {
	single
	Source auth.TokenSource
}

func (f *TokenFilter) OnBegin(cc *contract.CallContext) error {
	tok, err := f.Source.Token(cc.Context)
	if err != nil {
		return err
	}
	cc.Request.Header.Set("Authorization", tok.Header())
	return nil
}

func (f *TokenFilter) OnEnd(cc *contract.CallContext) error {
	if cc.Response == nil || cc.Response.StatusCode != http.StatusUnauthorized {
		return nil
	}
	if inv, ok := f.Source.(auth.Invalidator); ok {
		inv.Invalidate()
	}
	return nil
}
