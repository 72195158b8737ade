package cache

import (
	"time"

	"github.com/kbukum/apikit/logger"
)

// Option configures byte-oriented backends.
type Option func(*options)

type options struct {
	serializer Serializer
	log        *logger.Logger
	now        func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{serializer: JSON, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	return o
}

// WithSerializer replaces the JSON serializer, e.g. with a Sealed one.
func WithSerializer(s Serializer) Option {
	return func(o *options) {
		if s != nil {
			o.serializer = s
		}
	}
}

// WithLogger sets the logger used to report corrupt entries.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
