package core

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flockcore/pkg/domain"
)

const defaultRefreshConcurrency = 8

// Option customises a FowlRepository.
type Option func(*options)

type options struct {
	clock       Clock
	logger      *zap.Logger
	metrics     MetricsRecorder
	tracer      Tracer
	rules       *domain.RulesEngine
	newID       func() string
	concurrency int
}

func defaultOptions() options {
	return options{
		clock:       ClockFunc(nil),
		logger:      zap.NewNop(),
		metrics:     noopMetrics{},
		tracer:      noopTracer{},
		rules:       NewDefaultRulesEngine(),
		newID:       uuid.NewString,
		concurrency: defaultRefreshConcurrency,
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder installs an operation recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer installs a span tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRulesEngine replaces the default rule set. A nil engine disables rules.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(o *options) {
		if engine == nil {
			engine = domain.NewRulesEngine()
		}
		o.rules = engine
	}
}

// WithIDGenerator overrides how new fowl IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithRefreshConcurrency bounds the number of concurrent cache writes during Refresh.
func WithRefreshConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// NewDefaultRulesEngine returns an engine with the built-in lineage rules.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LineageIntegrityRule())
	return engine
}
