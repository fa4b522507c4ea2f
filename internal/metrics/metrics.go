package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "moonwire"

// Collector records client activity. A nil *Collector is valid and records nothing
type Collector struct {
	commands   *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	pushFrames prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is handy in tests
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands sent to the server.",
		}, []string{"command"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed operations by error kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from sending a command to decoding its reply.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"command"}),
		pushFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_frames_total",
			Help:      "Push frames read while subscribed.",
		}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{c.commands, c.errors, c.duration, c.pushFrames} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// ObserveCommand counts one completed round trip
func (c *Collector) ObserveCommand(name string, took time.Duration) {
	if c == nil {
		return
	}
	name = strings.ToUpper(name)
	c.commands.WithLabelValues(name).Inc()
	c.duration.WithLabelValues(name).Observe(took.Seconds())
}

// ObserveError counts one failure of the given kind
func (c *Collector) ObserveError(kind string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(kind).Inc()
}

// ObservePushFrame counts one frame read in subscription mode
func (c *Collector) ObservePushFrame() {
	if c == nil {
		return
	}
	c.pushFrames.Inc()
}
