package source

import (
	"log"
	"sync/atomic"
)

// FrameStatsInterface provides frame statistics management
type FrameStatsInterface interface {
	AddFrame(bytes int)
	AddDropped()
	AddSamples(count int)
	LogStats()
}

// FrameStats is the default FrameStatsInterface implementation. Counters
// are atomic so the receive goroutine and the stats logger never contend.
type FrameStats struct {
	frames  atomic.Int64
	bytes   atomic.Int64
	dropped atomic.Int64
	samples atomic.Int64
}

func NewFrameStats() *FrameStats {
	return &FrameStats{}
}

func (s *FrameStats) AddFrame(bytes int) {
	s.frames.Add(1)
	s.bytes.Add(int64(bytes))
}

func (s *FrameStats) AddDropped() {
	s.dropped.Add(1)
}

func (s *FrameStats) AddSamples(count int) {
	s.samples.Add(int64(count))
}

func (s *FrameStats) LogStats() {
	log.Printf("frame stats: frames=%d bytes=%d dropped=%d samples=%d",
		s.frames.Load(), s.bytes.Load(), s.dropped.Load(), s.samples.Load())
}

// noopStats is a FrameStatsInterface implementation that does nothing.
// It is used as a safe default when no stats collector is provided.
type noopStats struct{}

func (n *noopStats) AddFrame(bytes int)   {}
func (n *noopStats) AddDropped()          {}
func (n *noopStats) AddSamples(count int) {}
func (n *noopStats) LogStats()            {}
