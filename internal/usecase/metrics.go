package usecase

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/domain"
)

const (
	defaultErrorHistorySize = 50
	defaultSampleBufferSize = 1000
)

// MetricsConfig bounds the in-memory aggregation state and controls the
// periodic summary flush.
type MetricsConfig struct {
	// ErrorHistorySize caps how many recent errors are retained.
	ErrorHistorySize int
	// SampleBufferSize caps the response-time and confidence sample buffers.
	// Older samples are dropped once the cap is reached.
	SampleBufferSize int
	// FlushInterval is how often the summary is written to the log. Zero
	// disables the flusher.
	FlushInterval time.Duration
}

// MetricsService aggregates request telemetry for the companion path: volume,
// errors, latency percentiles, routing confidence, and per-category and
// per-language usage. All state lives in memory behind a single mutex so
// recording stays cheap on the hot path.
type MetricsService struct {
	errorHistorySize int
	sampleBufferSize int
	flushInterval    time.Duration
	logger           *zap.Logger
	now              func() time.Time

	mu            sync.Mutex
	totalRequests uint64
	totalErrors   uint64
	recentErrors  []domain.RequestError
	categoryUsage map[string]uint64
	languageUsage map[string]uint64
	responseTimes []time.Duration
	confidences   []float64
}

// NewMetricsService constructs the aggregator with bounded buffers. Usage maps
// are seeded with every known category and language so the summary always
// reports a complete breakdown.
func NewMetricsService(cfg MetricsConfig, logger *zap.Logger) *MetricsService {
	if cfg.ErrorHistorySize <= 0 {
		cfg.ErrorHistorySize = defaultErrorHistorySize
	}
	if cfg.SampleBufferSize <= 0 {
		cfg.SampleBufferSize = defaultSampleBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &MetricsService{
		errorHistorySize: cfg.ErrorHistorySize,
		sampleBufferSize: cfg.SampleBufferSize,
		flushInterval:    cfg.FlushInterval,
		logger:           logger,
		now:              time.Now,
	}
	s.seedUsage()

	return s
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *MetricsService) WithClock(now func() time.Time) *MetricsService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MetricsService) seedUsage() {
	s.categoryUsage = make(map[string]uint64, len(domain.KnownCategories()))
	for _, category := range domain.KnownCategories() {
		s.categoryUsage[category] = 0
	}

	s.languageUsage = make(map[string]uint64, len(domain.KnownLanguages()))
	for _, language := range domain.KnownLanguages() {
		s.languageUsage[language] = 0
	}
}

// Record folds one request sample into the aggregates. Unknown categories and
// languages are ignored rather than growing the usage maps unboundedly.
func (s *MetricsService) Record(sample domain.RequestSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++

	if sample.Err != nil {
		s.totalErrors++
		s.recentErrors = append(s.recentErrors, domain.RequestError{
			Category:   sample.Category,
			Message:    sample.Err.Error(),
			OccurredAt: s.now(),
		})
		if len(s.recentErrors) > s.errorHistorySize {
			s.recentErrors = s.recentErrors[len(s.recentErrors)-s.errorHistorySize:]
		}
	}

	if _, known := s.categoryUsage[sample.Category]; known {
		s.categoryUsage[sample.Category]++
	}
	if _, known := s.languageUsage[sample.Language]; known {
		s.languageUsage[sample.Language]++
	}

	s.responseTimes = append(s.responseTimes, sample.ResponseTime)
	if len(s.responseTimes) > s.sampleBufferSize {
		s.responseTimes = s.responseTimes[len(s.responseTimes)-s.sampleBufferSize:]
	}

	if sample.Confidence != nil {
		s.confidences = append(s.confidences, *sample.Confidence)
		if len(s.confidences) > s.sampleBufferSize {
			s.confidences = s.confidences[len(s.confidences)-s.sampleBufferSize:]
		}
	}
}

// Summary computes a point-in-time snapshot of all aggregates.
func (s *MetricsService) Summary() domain.MetricsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := domain.MetricsSummary{
		TotalRequests: s.totalRequests,
		TotalErrors:   s.totalErrors,
		CategoryUsage: make(map[string]uint64, len(s.categoryUsage)),
		LanguageUsage: make(map[string]uint64, len(s.languageUsage)),
		RecentErrors:  make([]domain.RequestError, len(s.recentErrors)),
		GeneratedAt:   s.now(),
	}

	if s.totalRequests > 0 {
		summary.ErrorRate = float64(s.totalErrors) / float64(s.totalRequests) * 100
	}

	for category, count := range s.categoryUsage {
		summary.CategoryUsage[category] = count
	}
	for language, count := range s.languageUsage {
		summary.LanguageUsage[language] = count
	}
	copy(summary.RecentErrors, s.recentErrors)

	if len(s.responseTimes) > 0 {
		sorted := make([]time.Duration, len(s.responseTimes))
		copy(sorted, s.responseTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var total time.Duration
		for _, rt := range sorted {
			total += rt
		}
		summary.AvgResponseTime = total / time.Duration(len(sorted))
		summary.P50ResponseTime = percentileOf(sorted, 50)
		summary.P95ResponseTime = percentileOf(sorted, 95)
		summary.P99ResponseTime = percentileOf(sorted, 99)
	}

	if len(s.confidences) > 0 {
		var total float64
		for _, c := range s.confidences {
			total += c
		}
		summary.AvgConfidence = total / float64(len(s.confidences))
	}

	return summary
}

// Reset discards all aggregates and reseeds the usage maps.
func (s *MetricsService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests = 0
	s.totalErrors = 0
	s.recentErrors = nil
	s.responseTimes = nil
	s.confidences = nil
	s.seedUsage()
}

// Start launches the periodic summary flush. The goroutine exits when the
// context is cancelled; with a zero interval nothing is started.
func (s *MetricsService) Start(ctx context.Context) {
	if s.flushInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(s.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.logSummary()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *MetricsService) logSummary() {
	summary := s.Summary()

	s.logger.Info("companion metrics summary",
		zap.Uint64("total_requests", summary.TotalRequests),
		zap.Uint64("total_errors", summary.TotalErrors),
		zap.Float64("error_rate_pct", summary.ErrorRate),
		zap.Duration("avg_response_time", summary.AvgResponseTime),
		zap.Duration("p95_response_time", summary.P95ResponseTime),
		zap.Float64("avg_confidence", summary.AvgConfidence),
	)
}

// percentileOf returns the value at percentile p from an ascending-sorted
// sample set, using the nearest-rank method.
func percentileOf(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}
