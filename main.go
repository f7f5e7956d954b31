package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/monitor"
	"github.com/banshee-data/pulse.report/internal/rppg/pipeline"
	sqlite "github.com/banshee-data/pulse.report/internal/rppg/storage/sqlite"
	"github.com/banshee-data/pulse.report/internal/source"
	"github.com/banshee-data/pulse.report/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	udpListen   = flag.String("udp-listen", ":9200", "UDP address for sample frames")
	serialPort  = flag.String("serial", "", "Serial port for sample frames (overrides UDP)")
	pcapFile    = flag.String("pcap", "", "Replay sample frames from a PCAP file (overrides UDP and serial)")
	dbFile      = flag.String("db", "pulse.db", "SQLite database path")
	tuningPath  = flag.String("tuning", "", "Tuning config path (defaults to config/tuning.defaults.json)")
	sessionFlag = flag.String("session", "", "Session ID (defaults to a fresh UUID)")
	migrateUp   = flag.Bool("migrate", false, "Apply database migrations at startup")
	spectra     = flag.Bool("spectra", false, "Capture per-subject spectra for the debug charts")
	retention   = flag.Duration("retention", 0, "Delete measurements older than this (0 keeps everything)")
)

const migrationsDir = "db/migrations"

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var tuning *config.TuningConfig
	if *tuningPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	} else {
		tuning = config.MustLoadDefaultConfig()
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *migrateUp {
		if err := database.MigrateUp(migrationsDir); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	sessionID := *sessionFlag
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log.Printf("pulse %s (%s) session %s starting", version.Version, version.GitSHA, sessionID)

	pipeCfg := pipeline.ConfigFromTuning(tuning)
	pipeCfg.Sink = sqlite.NewMeasurementSink(database.DB, sessionID, tuning.GetPersistInterval())
	pipeCfg.CaptureSpectra = *spectra

	controller := newGuardedPipeline(pipeline.New(pipeCfg))

	// Create a wait group for the HTTP server and frame source routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// frame source goroutine: exactly one of PCAP replay, serial, or UDP
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		switch {
		case *pcapFile != "":
			err = source.ReplayPCAPFile(ctx, *pcapFile, frameUDPPort(*udpListen), source.NewFrameStats(), controller)
		case *serialPort != "":
			var src *source.SerialSource
			src, err = source.NewSerialSource(*serialPort, source.NewFrameStats(), controller)
			if err == nil {
				err = src.Start(ctx)
			}
		default:
			src := source.NewUDPSource(source.UDPSourceConfig{
				Address: *udpListen,
				Stats:   source.NewFrameStats(),
				Handler: controller,
			})
			err = src.Start(ctx)
		}
		if err != nil && err != context.Canceled {
			log.Printf("frame source terminated: %v", err)
		}
		log.Print("frame source routine terminated")
	}()

	// retention goroutine: periodic prune of aged measurement rows
	if *retention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqlite.RunRetention(ctx, database.DB, *retention, 0)
		}()
	}

	// HTTP server goroutine
	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address:    *listen,
		Controller: controller,
		DB:         database,
		SessionID:  sessionID,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Start(ctx); err != nil {
			log.Printf("web server terminated: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("pulse session %s stopped", sessionID)
}
