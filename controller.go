package main

import (
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/banshee-data/pulse.report/internal/rppg/pipeline"
	"github.com/banshee-data/pulse.report/internal/source"
)

// guardedPipeline serialises access to the single-goroutine pipeline. The
// frame source drives Tick while the web server reads reports and handles
// resets, so every entry point takes the mutex.
type guardedPipeline struct {
	mu sync.Mutex
	p  *pipeline.Pipeline
}

func newGuardedPipeline(p *pipeline.Pipeline) *guardedPipeline {
	return &guardedPipeline{p: p}
}

// HandleFrame implements source.FrameHandler: each decoded frame is one
// pipeline tick.
func (g *guardedPipeline) HandleFrame(f source.Frame) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.p.Tick(f.Samples); err != nil {
		return err
	}
	return nil
}

// LatestReport implements monitor.PipelineController.
func (g *guardedPipeline) LatestReport() pipeline.Report {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.LatestReport()
}

// Spectra implements monitor.PipelineController.
func (g *guardedPipeline) Spectra() map[int]pipeline.Spectrum {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.Spectra()
}

// Reset implements monitor.PipelineController.
func (g *guardedPipeline) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.p.Reset()
}

// frameUDPPort extracts the port number from a listen address for PCAP
// filtering. Falls back to 9200 when the address cannot be parsed.
func frameUDPPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err == nil {
		if port, err := strconv.Atoi(portStr); err == nil {
			return port
		}
	}
	log.Printf("could not parse UDP port from %q, assuming 9200", addr)
	return 9200
}
