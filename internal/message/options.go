package message

import "github.com/dshills/widgetbus/internal/shell"

// Notifier receives the wake signal sent after every enqueue.
// *shell.Sender implements it.
type Notifier interface {
	Send(req shell.Request) error
}

// NotifierFunc is a function adapter for Notifier.
type NotifierFunc func(req shell.Request) error

// Send implements the Notifier interface.
func (f NotifierFunc) Send(req shell.Request) error {
	return f(req)
}

// nopNotifier discards every request.
type nopNotifier struct{}

func (nopNotifier) Send(shell.Request) error { return nil }

// RouterOption configures a Router.
type RouterOption func(*routerConfig)

// routerConfig contains configuration for the router.
type routerConfig struct {
	// bucketCapacity is the initial capacity of a new (entity, type) bucket.
	bucketCapacity int

	// metricsEnabled controls whether Stats counters are updated.
	metricsEnabled bool
}

// defaultRouterConfig returns sensible default configuration.
func defaultRouterConfig() routerConfig {
	return routerConfig{
		bucketCapacity: 4,
		metricsEnabled: true,
	}
}

// WithBucketCapacity sets the initial capacity of new buckets.
func WithBucketCapacity(n int) RouterOption {
	return func(c *routerConfig) {
		if n > 0 {
			c.bucketCapacity = n
		}
	}
}

// WithMetrics enables or disables metrics collection.
func WithMetrics(enabled bool) RouterOption {
	return func(c *routerConfig) {
		c.metricsEnabled = enabled
	}
}
