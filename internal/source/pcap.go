//go:build pcap
// +build pcap

package source

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// ReplayPCAPFile reads sample frames captured to a PCAP file and delivers
// them to the handler, filtering on the UDP port the live source would
// listen on. This function is only available when building with the 'pcap'
// build tag.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, stats FrameStatsInterface, handler FrameHandler) error {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter '%s': %w", filterStr, err)
	}
	log.Printf("PCAP BPF filter set: %s", filterStr)

	if stats == nil {
		stats = &noopStats{}
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	frameCount := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Printf("PCAP replay stopping due to context cancellation (processed %d frames)", frameCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				// End of PCAP file
				elapsed := time.Since(startTime)
				log.Printf("PCAP replay complete: %d frames processed in %v", frameCount, elapsed)
				return nil
			}

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue // Skip non-UDP packets (shouldn't happen with BPF filter)
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}
			payload := udp.Payload
			if len(payload) == 0 {
				continue
			}

			frameCount++
			stats.AddFrame(len(payload))

			frame, err := DecodeFrame(payload)
			if err != nil {
				stats.AddDropped()
				log.Printf("Error decoding PCAP frame %d: %v", frameCount, err)
				continue
			}
			stats.AddSamples(len(frame.Samples))

			if handler != nil {
				if err := handler.HandleFrame(frame); err != nil {
					log.Printf("Error handling PCAP frame %d: %v", frameCount, err)
				}
			}

			if frameCount%10000 == 0 {
				elapsed := time.Since(startTime)
				log.Printf("PCAP progress: %d frames processed in %v (%.0f frames/s)",
					frameCount, elapsed, float64(frameCount)/elapsed.Seconds())
			}
		}
	}
}
