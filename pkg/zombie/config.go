package zombie

// config.go defines the engine's configuration object and the set of
// functional options that can be passed to NewEngine(): a private config
// struct filled in by defaultConfig(), mutated by a slice of Option values,
// and validated once by applyOptions() before the object it configures is
// constructed.
//
// © 2025 zombie-cache authors. MIT License.

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/zombie-cache/internal/akasha"
	"github.com/Voskan/zombie-cache/internal/meter"
)

// Metric selects the eviction cost function.
type Metric int

const (
	// MetricLocal uses time/space of the context alone.
	MetricLocal Metric = iota
	// MetricUF uses the union-find class's aggregated neighbor time, divided
	// by space: cost of recomputing everything this eviction would chain into.
	MetricUF
)

// EvictionBackend selects which priority structure drives Engine.Reap.
type EvictionBackend int

const (
	// BackendGreedyDual uses internal/gdheap: cost + aging term L.
	BackendGreedyDual EvictionBackend = iota
	// BackendKinetic uses internal/kinetic: keys age as affine functions of a
	// virtual time, so priorities drift without being touched.
	BackendKinetic
)

// SizeFunc estimates the in-memory footprint of a value of type T. Size
// estimation belongs to the caller: the engine consumes the estimate for
// space accounting and never inspects the value itself.
type SizeFunc[T any] func(T) int

// Config bundles every knob that influences engine behavior. All fields are
// immutable once the Engine is constructed: no live mutation, no hot-reload.
type Config struct {
	metric             Metric
	approxFactorNum    int64
	approxFactorDen    int64
	evictionBackend    EvictionBackend
	akashaBackend      akasha.Backend
	useCPS             bool
	useTrain           bool
	logger             *zap.Logger
	registry           *prometheus.Registry
	clock              meter.Clock
	defaultSizeOf      func(any) int
}

// Option is the functional option passed to NewEngine.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		metric:          MetricLocal,
		approxFactorNum: 2,
		approxFactorDen: 1,
		evictionBackend: BackendGreedyDual,
		akashaBackend:   akasha.BackendSplay,
		useCPS:          false,
		useTrain:        false,
		logger:          zap.NewNop(),
		clock:           meter.NewSystemClock(),
		defaultSizeOf:   func(any) int { return 1 },
	}
}

// WithMetric selects the eviction cost metric (default MetricLocal).
func WithMetric(m Metric) Option {
	return func(c *Config) { c.metric = m }
}

// WithApproxFactor sets the GreedyDual heap's AdjustPop tolerance as an
// exact rational num/den, num > den > 0.
func WithApproxFactor(num, den int64) Option {
	return func(c *Config) { c.approxFactorNum, c.approxFactorDen = num, den }
}

// WithEvictionBackend selects the eviction priority structure.
func WithEvictionBackend(b EvictionBackend) Option {
	return func(c *Config) { c.evictionBackend = b }
}

// WithAkashaBackend selects BackendTree or BackendSplay for the lineage
// index.
func WithAkashaBackend(b akasha.Backend) Option {
	return func(c *Config) { c.akashaBackend = b }
}

// WithCPS selects the CPS replay strategy instead of the default ANF
// strategy: a partially replayed tail-call chain resumes from its pending
// continuation rather than restarting from the entry point.
func WithCPS(useCPS bool) Option {
	return func(c *Config) { c.useCPS = useCPS }
}

// WithTrain records the setting for the kinetic heap's far-future train
// optimization (default false). The kinetic heap has no train
// implementation, so this setting does not change engine behavior.
func WithTrain(useTrain bool) Option {
	return func(c *Config) { c.useTrain = useTrain }
}

// WithLogger plugs an external zap.Logger. The engine never logs on the
// Get/Bind hot path; only slow/rare events (eviction, reap steps, backend
// construction) are emitted. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default): the engine falls back to a no-op sink.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *Config) { c.registry = reg }
}

// WithClock plugs a Clock collaborator, letting tests fast-forward elapsed
// time deterministically instead of sleeping. Defaults to
// meter.NewSystemClock().
func WithClock(clock meter.Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDefaultSizeOf overrides the constant-1 size estimate applied to every
// value a bind or cell creation records.
func WithDefaultSizeOf(fn func(any) int) Option {
	return func(c *Config) {
		if fn != nil {
			c.defaultSizeOf = fn
		}
	}
}

// applyOptions mutates cfg with every opt in order, then validates the
// result, returning a descriptive error on the first violated constraint.
func applyOptions(cfg *Config, opts []Option) error {
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.approxFactorNum <= cfg.approxFactorDen || cfg.approxFactorDen <= 0 {
		return errInvalidApproxFactor
	}
	if cfg.clock == nil {
		return errNilClock
	}
	switch cfg.metric {
	case MetricLocal, MetricUF:
	default:
		return errUnknownMetric
	}
	switch cfg.evictionBackend {
	case BackendGreedyDual, BackendKinetic:
	default:
		return errUnknownBackend
	}
	switch cfg.akashaBackend {
	case akasha.BackendTree, akasha.BackendSplay:
	default:
		return errUnknownAkashaKind
	}
	return nil
}

func (c *Config) approxFactor() (num, den *big.Int) {
	return big.NewInt(c.approxFactorNum), big.NewInt(c.approxFactorDen)
}
