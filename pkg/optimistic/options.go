package optimistic

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

type options struct {
	logger         *zap.Logger
	timeout        time.Duration
	newLocalID     func() string
	onAuthRequired func()
}

// Option configures a Collection or an EdgeSet.
type Option func(*options)

// WithLogger sets the logger used to report rollbacks.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTimeout bounds every remote call. A call that exceeds it is treated as failed.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLocalIDs replaces the temporary id generator.
func WithLocalIDs(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newLocalID = fn
		}
	}
}

// WithAuthRequired registers a hook called when a mutation is suppressed for
// lack of an identity, typically a redirect to sign-in.
func WithAuthRequired(fn func()) Option {
	return func(o *options) { o.onAuthRequired = fn }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     zap.NewNop(),
		timeout:    defaultTimeout,
		newLocalID: func() string { return "tmp-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
