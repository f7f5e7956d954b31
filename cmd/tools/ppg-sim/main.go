// Command ppg-sim feeds synthetic PPG sample frames to a running pulse
// server over UDP. Useful for exercising the full pipeline without a
// camera in front of anyone.
package main

import (
	"flag"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/pulse.report/internal/rppg/synth"
	"github.com/banshee-data/pulse.report/internal/source"
)

func main() {
	target := flag.String("target", "127.0.0.1:9200", "UDP address of the pulse server")
	rate := flag.Float64("rate", 30, "frames per second")
	bpms := flag.String("bpm", "72", "comma-separated heart rates, one subject per value")
	noise := flag.Float64("noise", 0.2, "noise amplitude added to each sample")
	duration := flag.Duration("duration", 30*time.Second, "how long to send frames (0 = forever)")
	flag.Parse()

	conn, err := net.Dial("udp", *target)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *target, err)
	}
	defer conn.Close()

	var sims []*synth.PPGSim
	for _, field := range strings.Split(*bpms, ",") {
		bpm, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			log.Fatalf("invalid bpm value %q: %v", field, err)
		}
		sims = append(sims, synth.NewPPGSim(*rate, bpm, *noise))
	}
	log.Printf("sending %d subject(s) to %s at %.1f fps", len(sims), *target, *rate)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	frames := 0
	for {
		select {
		case <-deadline:
			log.Printf("✓ Sent %d frames", frames)
			return
		case <-ticker.C:
			frame := source.Frame{Samples: make(map[int]float64, len(sims))}
			for i, sim := range sims {
				frame.Samples[i] = sim.Next()
			}
			payload, err := source.EncodeFrame(frame)
			if err != nil {
				log.Fatalf("failed to encode frame: %v", err)
			}
			if _, err := conn.Write(payload); err != nil {
				log.Fatalf("failed to send frame: %v", err)
			}
			frames++
			if frames%300 == 0 {
				log.Printf("%d frames sent", frames)
			}
		}
	}
}
