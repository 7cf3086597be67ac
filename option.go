package circular

import (
	"net/http"

	"github.com/vitwit/circular/logger"
	"github.com/vitwit/circular/metrics"
	"k8s.io/utils/clock"
)

type Option func(*Circular)

// WithLogger overrides the logger built from Config.LogLevel
func WithLogger(l logger.Logger) Option {
	return func(c *Circular) {
		c.logger = l
	}
}

// WithMetrics overrides the recorder built from Config.EnableMetrics
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Circular) {
		c.metrics = r
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Circular) {
		c.httpClient = h
	}
}

// WithClock sets the clock used for timestamps and outcome polling
func WithClock(clk clock.Clock) Option {
	return func(c *Circular) {
		if clk != nil {
			c.clock = clk
		}
	}
}
