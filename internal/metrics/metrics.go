package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CyclesStarted      int64
	CyclesSkipped      int64
	CandidatesFound    int64
	DuplicatesFiltered int64
	Unsourced          int64
	ImagesGenerated    int64
	ImageFailures      int64
	PostsPublished     int64
	PublishFailures    int64
	RateLimited        int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) inc(counter *int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter += int64(n)
}

func (m *Metrics) IncrementCyclesStarted()      { m.inc(&m.CyclesStarted, 1) }
func (m *Metrics) IncrementCyclesSkipped()      { m.inc(&m.CyclesSkipped, 1) }
func (m *Metrics) AddCandidates(n int)          { m.inc(&m.CandidatesFound, n) }
func (m *Metrics) IncrementDuplicatesFiltered() { m.inc(&m.DuplicatesFiltered, 1) }
func (m *Metrics) IncrementUnsourced()          { m.inc(&m.Unsourced, 1) }
func (m *Metrics) IncrementImagesGenerated()    { m.inc(&m.ImagesGenerated, 1) }
func (m *Metrics) IncrementImageFailures()      { m.inc(&m.ImageFailures, 1) }
func (m *Metrics) IncrementPostsPublished()     { m.inc(&m.PostsPublished, 1) }
func (m *Metrics) IncrementPublishFailures()    { m.inc(&m.PublishFailures, 1) }
func (m *Metrics) IncrementRateLimited()        { m.inc(&m.RateLimited, 1) }

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

// RecordError keeps err as the last error without affecting health. Used for
// failures the next cycle is expected to recover from.
func (m *Metrics) RecordError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
}

// SetError records err and marks the process unhealthy until the next
// completed run.
func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"cycles_started":             m.CyclesStarted,
		"cycles_skipped":             m.CyclesSkipped,
		"candidates_found":           m.CandidatesFound,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"unsourced_rejected":         m.Unsourced,
		"images_generated":           m.ImagesGenerated,
		"image_failures":             m.ImageFailures,
		"posts_published":            m.PostsPublished,
		"publish_failures":           m.PublishFailures,
		"rate_limited":               m.RateLimited,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              formatTime(m.LastRunTime),
		"last_error_time":            formatTime(m.LastErrorTime),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
