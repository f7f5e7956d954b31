//go:build !pcap
// +build !pcap

package source

import (
	"context"
	"fmt"
)

// ReplayPCAPFile is a stub implementation when PCAP support is disabled
// Build with -tags=pcap to enable PCAP file replay
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, stats FrameStatsInterface, handler FrameHandler) error {
	return fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap to enable PCAP file replay")
}
