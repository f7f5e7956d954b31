package source

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// UDPSource receives sample frames over UDP with configurable components
// for decoding, statistics, and delivery.
type UDPSource struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	conn        *net.UDPConn
	stats       FrameStatsInterface
	handler     FrameHandler
}

// UDPSourceConfig contains configuration options for the UDP source
type UDPSourceConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       FrameStatsInterface
	Handler     FrameHandler
}

// NewUDPSource creates a new UDP source with the provided configuration
func NewUDPSource(config UDPSourceConfig) *UDPSource {
	// Provide a no-op stats implementation when none is supplied to avoid
	// nil pointer dereferences in the frame handling and logging paths.
	var stats FrameStatsInterface
	if config.Stats != nil {
		stats = config.Stats
	} else {
		stats = &noopStats{}
	}

	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	return &UDPSource{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		stats:       stats,
		handler:     config.Handler,
	}
}

// Start begins listening for UDP frames and processing them. It blocks
// until the context is cancelled or the socket fails.
func (s *UDPSource) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	s.conn = conn
	defer conn.Close()

	if s.rcvBuf > 0 {
		if err := conn.SetReadBuffer(s.rcvBuf); err != nil {
			log.Printf("Warning: Failed to set UDP receive buffer size to %d: %v", s.rcvBuf, err)
		}
	}

	log.Printf("UDP frame source started on %s", conn.LocalAddr())

	go s.startStatsLogging(ctx)

	// Frames are small JSON objects; 4 KiB covers dozens of subjects.
	buffer := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			log.Print("UDP frame source stopping due to context cancellation")
			return ctx.Err()
		default:
			// Set read deadline to allow checking context cancellation
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // Continue on timeout to check context
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("UDP read error: %v", err)
				continue
			}

			if err := s.handleFrame(buffer[:n]); err != nil {
				log.Printf("Error handling frame from %v: %v", addr, err)
			}
		}
	}
}

// LocalAddr reports the bound address once Start has opened the socket.
// Useful when the configured address uses port 0.
func (s *UDPSource) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *UDPSource) handleFrame(payload []byte) error {
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

// startStatsLogging periodically logs frame statistics
func (s *UDPSource) startStatsLogging(ctx context.Context) {
	// Trigger an initial stats report shortly after startup to avoid a long
	// silence on first-run. Then continue on the configured interval.
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		s.stats.LogStats()
	}

	ticker := time.NewTicker(s.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.stats.LogStats()
		}
	}
}
