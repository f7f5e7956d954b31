// Package source receives PPG sample frames from the capture process and
// hands them to the estimation pipeline. Frames arrive over UDP, a serial
// line, or a PCAP replay; all three carry the same JSON payload.
package source

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Frame is one decoded sample frame: the mean green-channel value for each
// tracked face, keyed by subject index. An empty Samples map is a valid
// frame and signals that no faces are currently tracked.
type Frame struct {
	Samples map[int]float64
}

// wireFrame is the on-the-wire shape. Subject indices travel as JSON object
// keys, so they arrive as strings.
type wireFrame struct {
	Samples map[string]float64 `json:"samples"`
}

// DecodeFrame parses a JSON frame payload. Subject keys must be
// non-negative integers.
func DecodeFrame(payload []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(payload, &w); err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	f := Frame{Samples: make(map[int]float64, len(w.Samples))}
	for key, value := range w.Samples {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return Frame{}, fmt.Errorf("invalid subject index %q in frame", key)
		}
		f.Samples[idx] = value
	}
	return f, nil
}

// EncodeFrame renders a frame in the wire format. Used by the simulator and
// in tests.
func EncodeFrame(f Frame) ([]byte, error) {
	w := wireFrame{Samples: make(map[string]float64, len(f.Samples))}
	for idx, value := range f.Samples {
		w.Samples[strconv.Itoa(idx)] = value
	}
	return json.Marshal(w)
}

// FrameHandler consumes decoded frames. Implementations must be safe to
// call from the source's receive goroutine.
type FrameHandler interface {
	HandleFrame(f Frame) error
}

// FrameHandlerFunc adapts a function to the FrameHandler interface.
type FrameHandlerFunc func(f Frame) error

func (fn FrameHandlerFunc) HandleFrame(f Frame) error { return fn(f) }
