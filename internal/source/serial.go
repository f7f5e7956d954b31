package source

import (
	"bufio"
	"context"
	"log"
	"strings"

	"go.bug.st/serial"
)

// SerialSource reads newline-delimited sample frames from a serial port.
// Embedded capture boards that cannot speak UDP write one JSON frame per
// line at 115200-8N1.
type SerialSource struct {
	serial.Port
	stats   FrameStatsInterface
	handler FrameHandler
}

// NewSerialSource opens portName at 115200-8N1 and prepares it for
// monitoring. Stats may be nil.
func NewSerialSource(portName string, stats FrameStatsInterface, handler FrameHandler) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	if stats == nil {
		stats = &noopStats{}
	}
	return &SerialSource{port, stats, handler}, nil
}

// Start reads lines from the serial port until the context is cancelled or
// the port fails. Blank lines and undecodable lines are counted and
// skipped, not fatal.
func (s *SerialSource) Start(ctx context.Context) error {
	defer s.Close()
	scan := bufio.NewScanner(s.Port)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if !scan.Scan() {
				return scan.Err()
			}
			line := strings.TrimSpace(scan.Text())
			if line == "" {
				continue
			}
			if err := s.handleLine([]byte(line)); err != nil {
				log.Printf("Error handling serial frame: %v", err)
			}
		}
	}
}

func (s *SerialSource) handleLine(payload []byte) error {
	s.stats.AddFrame(len(payload))

	frame, err := DecodeFrame(payload)
	if err != nil {
		s.stats.AddDropped()
		return err
	}
	s.stats.AddSamples(len(frame.Samples))

	if s.handler == nil {
		return nil
	}
	return s.handler.HandleFrame(frame)
}
