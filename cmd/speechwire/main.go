// Command speechwire streams an audio file to the Gummy duplex speech
// recognition/translation service and prints results as they arrive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/speechwire/internal/config"
	"github.com/MrWong99/speechwire/internal/observe"
	"github.com/MrWong99/speechwire/pkg/audio"
	"github.com/MrWong99/speechwire/pkg/gummy"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputPath := flag.String("input", "", "audio file to recognise (WAV or raw PCM)")
	targetLang := flag.String("target-lang", "", "override the translation target language")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "speechwire: -input is required")
		return 2
	}

	// A .env file is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "speechwire: %v\n", err)
		return 1
	}
	if *targetLang != "" {
		cfg.Session.TargetLang = *targetLang
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	if cfg.Server.MetricsAddr != "" {
		go serveMetrics(cfg.Server.MetricsAddr)
	}

	// ── Audio source ──────────────────────────────────────────────────────────
	src, err := openSource(*inputPath, cfg.Session)
	if err != nil {
		slog.Error("failed to open audio input", "path", *inputPath, "err", err)
		return 1
	}
	slog.Info("audio input ready",
		"path", *inputPath,
		"sample_rate", src.Format().SampleRate,
		"channels", src.Format().Channels,
		"duration", src.Duration().Round(100*time.Millisecond),
	)

	// ── Client ────────────────────────────────────────────────────────────────
	apiKey, err := cfg.Client.ResolveAPIKey()
	if err != nil {
		slog.Error("no API key available", "err", err)
		return 1
	}
	client, err := buildClient(apiKey, cfg.Client)
	if err != nil {
		slog.Error("failed to build client", "err", err)
		return 1
	}

	streamCfg := gummy.StreamConfig{
		TargetLang:                      cfg.Session.TargetLang,
		SourceLang:                      cfg.Session.SourceLang,
		SampleRate:                      src.Format().SampleRate,
		Format:                          gummy.AudioFormat(cfg.Session.Format),
		MaxEndSilence:                   time.Duration(cfg.Session.MaxEndSilenceMs) * time.Millisecond,
		DisableInverseTextNormalization: cfg.Session.DisableITN,
	}

	// ── Session ───────────────────────────────────────────────────────────────
	metrics := observe.DefaultMetrics()
	sink := gummy.NewChannelSink(16)

	var printers sync.WaitGroup
	printers.Add(2)
	go func() {
		defer printers.Done()
		for r := range sink.Recognitions() {
			printResult("asr", r)
		}
	}()
	go func() {
		defer printers.Done()
		for r := range sink.Translations() {
			printResult("mt", r)
		}
	}()

	metrics.ActiveSessions.Add(ctx, 1)
	start := time.Now()
	stats, err := client.Recognize(ctx, streamCfg, src, observe.NewInstrumentedSink(sink, metrics))
	metrics.ActiveSessions.Add(ctx, -1)
	metrics.SessionDuration.Record(ctx, time.Since(start).Seconds())
	metrics.FramesSent.Add(ctx, int64(stats.FramesSent))
	metrics.BytesSent.Add(ctx, stats.BytesSent)

	sink.Close()
	printers.Wait()

	if err != nil {
		metrics.RecordSessionError(ctx, errorReason(err))
		slog.Error("session failed", "err", err)
		if errors.Is(err, gummy.ErrSpeechTooLong) {
			fmt.Fprintln(os.Stderr, "speechwire: the audio exceeds the 60s session limit; split it into shorter files")
		}
		return 1
	}

	slog.Info("session finished",
		"bytes_sent", stats.BytesSent,
		"frames_sent", stats.FramesSent,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return 0
}

// newLogger builds the default slog logger honouring the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// openSource opens a WAV or raw PCM file as an audio.Source. Raw PCM needs
// the format parameters from the session config; WAV carries its own.
func openSource(path string, sess config.SessionConfig) (*audio.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return audio.FromWAV(f)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	rate := sess.SampleRate
	if rate == 0 {
		rate = 16000
	}
	return audio.NewSource(f, info.Size(), audio.Format{
		SampleRate:  rate,
		Channels:    1,
		SampleWidth: 2,
	})
}

// buildClient assembles the gummy client from config.
func buildClient(apiKey string, cc config.ClientConfig) (*gummy.Client, error) {
	opts := []gummy.Option{}
	if cc.Endpoint != "" {
		opts = append(opts, gummy.WithBaseURL(cc.Endpoint))
	}
	if cc.Model != "" {
		opts = append(opts, gummy.WithModel(cc.Model))
	}
	if cc.ChunkSize > 0 {
		opts = append(opts, gummy.WithChunkSize(cc.ChunkSize))
	}
	if cc.DisablePacing {
		opts = append(opts, gummy.WithoutPacing())
	}
	return gummy.New(apiKey, opts...)
}

// printResult writes one result line to stdout. Partial results are marked
// so terminal consumers can distinguish them from committed segments.
func printResult(kind string, r gummy.Result) {
	state := "partial"
	if r.IsFinal {
		state = "final"
	}
	lang := r.Lang
	if lang == "" {
		lang = "-"
	}
	fmt.Printf("[%s %-7s %s] %v–%v  %s\n", kind, state, lang, r.Begin.Round(10*time.Millisecond), r.End.Round(10*time.Millisecond), r.Text)
}

// errorReason maps a session error to a low-cardinality metrics label.
func errorReason(err error) string {
	var cfgErr *gummy.ConfigError
	var taskErr *gummy.TaskError
	switch {
	case errors.As(err, &cfgErr):
		return "config"
	case errors.As(err, &taskErr):
		return "task_failed"
	case errors.Is(err, gummy.ErrClosedPrematurely):
		return "connection_closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "connection"
	}
}

// serveMetrics exposes the Prometheus bridge on addr.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics server stopped", "err", err)
	}
}
