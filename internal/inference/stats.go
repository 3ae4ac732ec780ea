package inference

import (
	"math"
	"sync"
	"time"

	"DanmakuAnalysis/internal/model"
)

// statsRecorder 推理调用统计，每个子批次记录一次
type statsRecorder struct {
	mu             sync.Mutex
	totalCalls     int64
	successful     int64
	failed         int64
	processingTime time.Duration
	processedTexts int64
	resetAt        time.Time
}

func newStatsRecorder(now time.Time) *statsRecorder {
	return &statsRecorder{resetAt: now}
}

func (s *statsRecorder) record(ok bool, texts int, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls++
	if ok {
		s.successful++
	} else {
		s.failed++
	}
	s.processedTexts += int64(texts)
	s.processingTime += elapsed
}

func (s *statsRecorder) snapshot(now time.Time) model.PerformanceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := model.PerformanceStats{
		TotalCalls:          s.totalCalls,
		SuccessfulCalls:     s.successful,
		FailedCalls:         s.failed,
		TotalProcessedTexts: s.processedTexts,
		UptimeSeconds:       now.Sub(s.resetAt).Seconds(),
	}
	secs := s.processingTime.Seconds()
	if s.totalCalls > 0 {
		st.SuccessRate = round(float64(s.successful)/float64(s.totalCalls)*100, 2)
	}
	if s.processedTexts > 0 {
		st.AvgTimePerText = round(secs/float64(s.processedTexts), 4)
	}
	if secs > 0 {
		st.TextsPerSecond = round(float64(s.processedTexts)/secs, 2)
	}
	return st
}

func (s *statsRecorder) reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls, s.successful, s.failed, s.processedTexts = 0, 0, 0, 0
	s.processingTime = 0
	s.resetAt = now
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
