package list

import (
	"log/slog"
	"time"

	"github.com/shoplist/shoplist-go/internal/optimistic"
	"github.com/shoplist/shoplist-go/internal/platform/logutil"
)

// Option configures a view's coordinator.
type Option func(*viewOpts)

type viewOpts struct {
	timeout time.Duration
	notify  optimistic.NoticeFunc
	logger  *slog.Logger
}

// WithTimeout overrides the authoritative-call deadline for the view's
// mutations. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *viewOpts) { o.timeout = d }
}

// WithNoticeFunc registers the sink for rollback notices.
func WithNoticeFunc(fn optimistic.NoticeFunc) Option {
	return func(o *viewOpts) { o.notify = fn }
}

// WithLogger sets the view logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *viewOpts) { o.logger = logutil.NoopIfNil(l) }
}

func buildOpts(opts []Option) viewOpts {
	o := viewOpts{
		timeout: optimistic.DefaultTimeout,
		logger:  logutil.Noop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o viewOpts) coordinator() *optimistic.Coordinator {
	co := []optimistic.Option{
		optimistic.WithTimeout(o.timeout),
		optimistic.WithLogger(o.logger),
	}
	if o.notify != nil {
		co = append(co, optimistic.WithNotice(o.notify))
	}
	return optimistic.New(co...)
}
