package pipeline

import (
	"sort"

	"github.com/banshee-data/pulse.report/internal/rppg/signal"
)

// ResetStrategy names the registry lifecycle policy applied when a tick
// reports zero visible subjects.
type ResetStrategy string

const (
	// ResetOnEmpty destroys every buffer whenever a tick carries no
	// subjects. Subject indices are detection-order slots, not identities:
	// once detection drops to zero there is nothing to anchor a slot to a
	// person, so carrying history forward would stitch different people's
	// signals together. This is the only shipped strategy; a persistent-
	// identity strategy could be added without touching buffer or
	// estimator code.
	ResetOnEmpty ResetStrategy = "reset_on_empty"
)

// Registry owns one signal buffer per currently-tracked subject index.
// Entries are created the first time an index is seen and destroyed only by
// Clear. Index reuse across frames is the only form of identity.
type Registry struct {
	bufferCfg signal.BufferConfig
	buffers   map[int]*signal.Buffer
}

// NewRegistry creates an empty registry whose buffers use the given sizing.
func NewRegistry(bufferCfg signal.BufferConfig) *Registry {
	return &Registry{
		bufferCfg: bufferCfg,
		buffers:   make(map[int]*signal.Buffer),
	}
}

// Ensure returns the buffer for the given subject index, creating it when
// the index is seen for the first time.
func (r *Registry) Ensure(index int) *signal.Buffer {
	buf, ok := r.buffers[index]
	if !ok {
		buf = signal.NewBuffer(r.bufferCfg)
		r.buffers[index] = buf
	}
	return buf
}

// Get returns the buffer for the index, or nil when untracked.
func (r *Registry) Get(index int) *signal.Buffer {
	return r.buffers[index]
}

// Len returns the number of tracked subjects.
func (r *Registry) Len() int {
	return len(r.buffers)
}

// Indices returns the tracked subject indices in ascending order.
func (r *Registry) Indices() []int {
	out := make([]int, 0, len(r.buffers))
	for i := range r.buffers {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clear destroys all buffers. The next Ensure starts fresh accumulation.
func (r *Registry) Clear() {
	r.buffers = make(map[int]*signal.Buffer)
}
