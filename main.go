package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	ossignal "os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/redgate-data/violation.report/internal/api"
	"github.com/redgate-data/violation.report/internal/config"
	"github.com/redgate-data/violation.report/internal/evidence"
	"github.com/redgate-data/violation.report/internal/pipeline"
	"github.com/redgate-data/violation.report/internal/plate"
	"github.com/redgate-data/violation.report/internal/profile"
	"github.com/redgate-data/violation.report/internal/signal"
	"github.com/redgate-data/violation.report/internal/track"
	"github.com/redgate-data/violation.report/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with synthetic frames")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "violations.db", "Path to the violations database")
	configPath = flag.String("config", "", "Path to a pipeline config JSON file")

	framesPath = flag.String("frames", "", "Path to a JSON-lines frame fixture")
	tracksPath = flag.String("tracks", "", "Path to a JSON-lines tracker fixture")
	signalPath = flag.String("signal-json", "", "Path to the red-interval document")
	stopLine   = flag.String("stop-line", "", "Stop line as \"x1,y1,x2,y2\"")
	forceRed   = flag.Bool("force-red", false, "Treat the signal as always red")
	outputDir  = flag.String("output", "output", "Directory for evidence artifacts")
	ocrURL     = flag.String("ocr-url", "", "URL of the OCR service")
	sinkURL    = flag.String("sink-url", "", "Remote violations endpoint; empty stores locally")
	devFrames  = flag.Int64("dev-frames", 300, "Synthetic frame count in dev mode")
)

func loadConfig() *config.PipelineConfig {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.EmptyPipelineConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

// buildPipeline wires the detection pipeline from flags, or returns nil when
// no frame input is configured and the process serves the API only.
func buildPipeline(cfg *config.PipelineConfig, store *profile.Store) (*pipeline.Pipeline, pipeline.FrameSource) {
	if *framesPath == "" && !*devMode {
		return nil, nil
	}
	if *stopLine == "" {
		log.Fatal("stop line is required to run the pipeline")
	}
	line, err := track.ParseStopLine(*stopLine)
	if err != nil {
		log.Fatalf("invalid stop line: %v", err)
	}

	var intervals []signal.Interval
	if *signalPath != "" {
		intervals = signal.LoadIntervals(*signalPath)
	}
	timeline := signal.NewTimeline(time.Now().UTC(), cfg.GetFrameRate(), *forceRed, intervals)

	var tracker pipeline.Tracker
	if *tracksPath != "" {
		tracker, err = track.LoadFixtureTracker(*tracksPath)
		if err != nil {
			log.Fatalf("failed to load tracker fixture: %v", err)
		}
	} else {
		log.Fatal("a tracker fixture is required to run the pipeline")
	}

	var source pipeline.FrameSource
	if *framesPath != "" {
		source, err = pipeline.OpenFixtureFrameSource(*framesPath)
		if err != nil {
			log.Fatalf("failed to open frame source: %v", err)
		}
	} else {
		source = pipeline.NewSyntheticFrameSource(timeline, *devFrames)
	}

	evStore, err := evidence.NewStore(
		filepath.Join(*outputDir, "images"),
		filepath.Join(*outputDir, "clips"),
	)
	if err != nil {
		log.Fatalf("failed to create evidence store: %v", err)
	}

	var engines []plate.Engine
	if *ocrURL != "" {
		engines = append(engines, plate.NewHTTPEngine("remote", *ocrURL))
	}

	var sink pipeline.Sink
	if *sinkURL != "" {
		sink = pipeline.NewHTTPSink(*sinkURL)
	} else {
		sink = &pipeline.StoreSink{Store: store}
	}

	p := pipeline.New(pipeline.Options{
		Timeline:      timeline,
		Tracker:       tracker,
		OCR:           plate.NewChain(engines...),
		Sink:          sink,
		EvidenceStore: evStore,
		Profiles:      store,
		StopLine:      line,
		Config:        cfg,
	})
	return p, source
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("violation.report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := loadConfig()

	store, err := profile.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open violations database: %v", err)
	}
	defer store.Close()

	p, source := buildPipeline(cfg, store)

	var wg sync.WaitGroup
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx, source); err != nil && err != context.Canceled {
				log.Printf("pipeline stopped: %v", err)
			}
			log.Print("pipeline routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes (tailsql console, backup)
		store.AttachAdminRoutes(mux)

		apiMux := api.NewServer(store, cfg).ServeMux()
		mux.Handle("/", api.LoggingMiddleware(apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
