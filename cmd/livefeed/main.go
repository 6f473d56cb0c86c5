package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rada-ai/rada-vms/internal/config"
	"github.com/rada-ai/rada-vms/internal/frames"
	"github.com/rada-ai/rada-vms/internal/overlay"
	"github.com/rada-ai/rada-vms/internal/producer"
	"github.com/rada-ai/rada-vms/internal/relay"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	live := cfg.Live

	if _, err := os.Stat(live.Video); err != nil {
		log.Fatalf("Video not found: %s", live.Video)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buf := frames.NewBuffer()
	src := producer.FFmpegSource{Bin: live.FFmpeg, Video: live.Video, Width: live.Width, FPS: live.FPS}

	var ov producer.Overlay
	if live.Overlay {
		ov = overlay.New(overlay.DefaultCamera, live.Width)
	}
	p := producer.New(src, buf, ov, live.RestartDelay)

	go p.Run(ctx)
	log.Printf("[Live] producer started: %s", src)

	if err := p.WaitFirstFrame(ctx, live.FirstFrameTimeout); err != nil {
		log.Fatalf("[Live] %v within %s; is %s installed and on PATH?", err, live.FirstFrameTimeout, live.FFmpeg)
	}

	handler := relay.NewHandler(buf, relay.Config{EmptyWait: live.EmptyWait, Pace: live.Pace})
	server := &http.Server{
		Addr:              ":" + live.Port,
		Handler:           relay.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[Live] MJPEG relay on :%s", live.Port)
		for i := 1; i <= live.Cameras; i++ {
			log.Printf("[Live]   %s", streamURL(live.Port, i))
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[Live] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Live] graceful shutdown error: %v", err)
	}
}

func streamURL(port string, n int) string {
	return fmt.Sprintf("http://127.0.0.1:%s/cam_%d.mjpg", port, n)
}
