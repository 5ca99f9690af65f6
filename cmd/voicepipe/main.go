package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/fankserver/voicepipe/internal/archive"
	"github.com/fankserver/voicepipe/internal/capture"
	"github.com/fankserver/voicepipe/internal/config"
	"github.com/fankserver/voicepipe/internal/device"
	"github.com/fankserver/voicepipe/internal/discordnotify"
	"github.com/fankserver/voicepipe/internal/eventloop"
	"github.com/fankserver/voicepipe/internal/hue"
	"github.com/fankserver/voicepipe/internal/keys"
	"github.com/fankserver/voicepipe/internal/llmlights"
	"github.com/fankserver/voicepipe/internal/logging"
	"github.com/fankserver/voicepipe/internal/mcpsurface"
	"github.com/fankserver/voicepipe/internal/pipeline"
	"github.com/fankserver/voicepipe/internal/router"
	"github.com/fankserver/voicepipe/internal/segment"
	"github.com/fankserver/voicepipe/internal/transcribe"
	"github.com/fankserver/voicepipe/internal/tui"
)

var (
	configPath string
	logPath    string
)

func init() {
	flag.StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	flag.StringVar(&logPath, "log-file", "", "optional path to also write logs to")
}

func main() {
	_ = godotenv.Load()
	flag.Parse()

	if err := logging.Setup(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	args := flag.Args()
	switch {
	case len(args) >= 1 && args[0] == "list":
		runList()
	case len(args) >= 2 && args[0] == "transcript" && args[1] == "paths-list":
		runTranscriptPathsList(cfg)
	case len(args) >= 2 && args[0] == "transcript" && args[1] == "show-latest":
		runTranscriptShowLatest(cfg)
	case len(args) >= 1 && args[0] == "config":
		runShowConfig(cfg)
	default:
		runInteractive(cfg)
	}
}

func runList() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize audio context")
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	names, err := device.New(ctx).List()
	if err != nil {
		logrus.WithError(err).Fatal("failed to enumerate devices")
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runTranscriptPathsList(cfg config.Config) {
	var paths []string
	archiver := archive.New(cfg.ResultsDir)
	latest, err := archiver.LatestPath()
	if err != nil {
		logrus.WithError(err).Fatal("failed to list transcript paths")
	}
	if latest != "" {
		paths = append(paths, latest)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

func runTranscriptShowLatest(cfg config.Config) {
	archiver := archive.New(cfg.ResultsDir)
	path, err := archiver.LatestPath()
	if err != nil {
		logrus.WithError(err).Fatal("failed to find latest transcript")
	}
	if path == "" {
		fmt.Println("no transcripts recorded yet")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.WithError(err).Fatal("failed to read latest transcript")
	}
	fmt.Print(string(data))
}

func runShowConfig(cfg config.Config) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		logrus.WithError(err).Fatal("failed to render configuration")
	}
	fmt.Println(string(data))
}

func runInteractive(cfg config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer cancel()

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize audio context")
	}
	defer func() {
		_ = audioCtx.Uninit()
		audioCtx.Free()
	}()

	deviceNames, err := device.New(audioCtx).List()
	if err != nil {
		logrus.WithError(err).Fatal("failed to enumerate devices")
	}

	consumers := buildConsumers(cfg)
	rt := router.New(consumers...)
	archiver := archive.New(cfg.ResultsDir)

	queueCfg := pipeline.DefaultConfig()
	queue := pipeline.New(queueCfg)
	queue.Start(transcribe.NewClient(cfg.TranscriptionEndpoint))
	defer queue.Stop()

	restore, err := tui.RawMode()
	if err != nil {
		logrus.WithError(err).Warn("failed to enter raw terminal mode; keyboard shortcuts may not work")
	} else {
		defer restore()
	}
	ui := tui.New()

	loop := eventloop.New(segment.New(0, 0), queue, rt, archiver, ui, keys.NewTable(cfg.Keys), tui.Keys())

	for _, name := range deviceNames {
		micCfg := cfg.Microphones[name]
		session, err := capture.Open(audioCtx, name)
		if err != nil {
			logrus.WithError(err).WithField("device", name).Error("failed to open capture device, skipping")
			continue
		}
		loop.AddDevice(name, session, micCfg.Enabled)
	}

	mcpServer := mcpsurface.New(loop, archiver)
	go func() {
		if err := mcpServer.Run(ctx); err != nil {
			logrus.WithError(err).Error("mcp server stopped")
		}
	}()

	logrus.Info("voicepipe is running. Press the configured quit key to exit.")
	loop.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	<-shutdownCtx.Done()
}

func buildConsumers(cfg config.Config) []router.Consumer {
	var consumers []router.Consumer

	if cfg.Hue.BridgeIP != "" {
		bridge := hue.New(cfg.Hue.BridgeIP, cfg.Hue.Username)
		interpreter, err := llmlights.New(cfg.LLM.BaseURL, cfg.LLM.Model, nil)
		if err != nil {
			logrus.WithError(err).Warn("failed to initialize lights interpreter, skipping")
		} else {
			consumers = append(consumers, llmlights.NewConsumer(interpreter, bridge))
		}
	}

	if cfg.Discord.Enabled {
		notifier, err := discordnotify.New(cfg.Discord.Token, cfg.Discord.ChannelID)
		if err != nil {
			logrus.WithError(err).Warn("failed to initialize discord notifier, skipping")
		} else {
			consumers = append(consumers, notifier)
		}
	}

	return consumers
}
