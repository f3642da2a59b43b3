package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"clockwidget/cmd/clockctl/interactive"
	"clockwidget/internal/core/clock"
	"clockwidget/internal/core/countdown"
	"clockwidget/internal/core/model"
	"clockwidget/internal/core/stopwatch"
	"clockwidget/internal/core/tick"
	"clockwidget/internal/core/timesource"
	"clockwidget/internal/feed"
	"clockwidget/internal/logging"
	"clockwidget/internal/notify"
	"clockwidget/internal/storage"
)

const appName = "clockwidget"

var (
	configPath string
	logLevel   string
	listenAddr string
	quiet      bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Configuration file path (default: user config dir)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flag.StringVar(&listenAddr, "listen", "", "Serve the HTTP/websocket feed on this address (overrides feed.listen)")
	flag.BoolVar(&quiet, "quiet", false, "Do not play the alert sound")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "clockctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	output := &logOutput{target: os.Stderr}
	logger := logging.New(output, level)

	config, err := loadConfig()
	if err != nil {
		logger.Warn("config unreadable, using defaults", "error", err)
	}
	if listenAddr != "" {
		config.FeedListen = listenAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := timesource.NewHTTPSource(config.Clock.Endpoint, config.Clock.FetchTimeout, nil)
	clockEngine := clock.New(source, clock.Options{
		ResyncInterval: config.Clock.ResyncInterval,
		TickInterval:   config.Clock.TickInterval,
		FetchTimeout:   config.Clock.FetchTimeout,
		Logger:         logger,
	})
	countdownEngine := countdown.New(countdown.Options{Logger: logger})
	stopwatchOptions := stopwatch.Options{Logger: logger}
	if config.ExclusiveStopwatch {
		stopwatchOptions.Guard = stopwatch.NewRunGuard()
	}
	stopwatchEngine := stopwatch.New(stopwatchOptions)
	frames := tick.NewLoop(nil, config.FrameInterval, countdownEngine, stopwatchEngine)

	console, err := interactive.New(interactive.Engines{
		Clock:            clockEngine,
		Countdown:        countdownEngine,
		Stopwatch:        stopwatchEngine,
		DefaultCountdown: config.DefaultCountdown,
	})
	if err != nil {
		return err
	}
	// Route logs through readline so they do not garble the prompt.
	output.redirect(console.Stdout())

	sinks := notify.Multi{console, notify.LogSink{Logger: logger}}
	if !quiet {
		if audio, err := notify.NewAudioSink(config.Alert, logger); err != nil {
			logger.Warn("audio alert disabled", "error", err)
		} else {
			sinks = append(sinks, audio)
		}
	}
	go notify.Forward(ctx, countdownEngine.Completions(1), sinks)

	clockEngine.Start()
	frames.Start()

	if config.FeedListen != "" {
		server := feed.New(feed.Engines{
			Clock:     clockEngine,
			Countdown: countdownEngine,
			Stopwatch: stopwatchEngine,
		}, feed.Options{Listen: config.FeedListen, Logger: logger})
		go func() {
			if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("feed stopped", "error", err)
			}
		}()
	}

	go console.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	frames.Stop()
	clockEngine.Stop()
	countdownEngine.Close()
	stopwatchEngine.Close()
	slog.Debug("clockctl stopped")
	return nil
}

func loadConfig() (model.Config, error) {
	if configPath != "" {
		return storage.LoadConfigFile(configPath)
	}
	config, _, err := storage.LoadConfig(appName)
	return config, err
}

// logOutput lets the logger built at startup switch to the readline writer
// once the console exists.
type logOutput struct {
	mu     sync.Mutex
	target io.Writer
}

func (output *logOutput) Write(p []byte) (int, error) {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.target.Write(p)
}

func (output *logOutput) redirect(target io.Writer) {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.target = target
}
