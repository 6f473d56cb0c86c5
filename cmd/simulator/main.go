package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rada-ai/rada-vms/internal/config"
	"github.com/rada-ai/rada-vms/internal/platform/paths"
	"github.com/rada-ai/rada-vms/internal/producer"
	"github.com/rada-ai/rada-vms/internal/simulator"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config yaml")
	scenarioPath := flag.String("scenario", "", "scenario yaml (overrides config)")
	mode := flag.String("mode", "", "SIM_ONLY or VIDEO_LOOP (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	sim := cfg.Simulator
	if *scenarioPath != "" {
		sim.Scenario = *scenarioPath
	}
	if *mode != "" {
		sim.Mode = strings.ToUpper(*mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := simulator.NewScenarioStore(sim.Scenario)
	if err != nil {
		log.Fatalf("Scenario error: %v", err)
	}
	if sim.WatchReloads {
		store.Watch(ctx, 0)
	}

	if err := paths.EnsureMediaDirs(sim.MediaDir); err != nil {
		log.Fatalf("Media dir init error: %v", err)
	}

	if sim.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(sim.MetricsAddr, mux); err != nil {
				log.Printf("[Simulator] metrics listener stopped: %v", err)
			}
		}()
	}

	client := simulator.NewClient(sim.APIBase, sim.HTTPTimeout)
	token, err := client.Login(ctx, sim.Username, sim.Password)
	if err != nil {
		log.Fatalf("[Simulator] %v", err)
	}
	cams, err := client.Cameras(ctx, token)
	if err != nil {
		log.Fatalf("[Simulator] %v", err)
	}

	snaps := snapshotter(ctx, sim)
	driver, err := simulator.NewDriver(client, store, cams, sim.Mode, snaps)
	if errors.Is(err, simulator.ErrNoCameras) {
		log.Println("No cameras found. Run POST /dev/seed first.")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("[Simulator] %v", err)
	}

	log.Printf("[Simulator] running scenario %q against %s with %d cameras (%s)",
		store.Current().Name, sim.APIBase, len(cams), sim.Mode)
	if err := driver.Run(ctx); err != nil {
		log.Fatalf("[Simulator] %v", err)
	}
	log.Println("[Simulator] stopped")
}

// snapshotter picks the frame source for event snapshots. VIDEO_LOOP aligns
// snapshots with the live loop started at the same moment.
func snapshotter(ctx context.Context, sim config.SimulatorConfig) simulator.Snapshotter {
	if sim.Mode != simulator.ModeVideoLoop {
		return simulator.SyntheticSnapshots{MediaDir: sim.MediaDir}
	}

	if _, err := os.Stat(sim.Video); err != nil {
		log.Printf("[Simulator] video %s not found, falling back to synthetic snapshots", sim.Video)
		return simulator.SyntheticSnapshots{MediaDir: sim.MediaDir}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	d, err := producer.ProbeDuration(probeCtx, sim.FFmpeg, sim.Video)
	if err != nil {
		log.Printf("[Simulator] could not probe %s (%v), assuming %s", sim.Video, err, simulator.FallbackVideoDuration)
		d = simulator.FallbackVideoDuration
	}

	return simulator.VideoSnapshots{
		FFmpeg:    sim.FFmpeg,
		Video:     sim.Video,
		Duration:  d,
		MediaDir:  sim.MediaDir,
		LoopStart: time.Now(),
	}
}
