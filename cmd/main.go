package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"clockwidget/internal/core/clock"
	"clockwidget/internal/core/countdown"
	"clockwidget/internal/core/model"
	"clockwidget/internal/core/stopwatch"
	"clockwidget/internal/core/tick"
	"clockwidget/internal/core/timesource"
	"clockwidget/internal/feed"
	"clockwidget/internal/logging"
	"clockwidget/internal/notify"
	"clockwidget/internal/platform"
	"clockwidget/internal/storage"
	"clockwidget/internal/ui/screens"
	"clockwidget/internal/ui/tray"
)

const (
	appName = "clockwidget"
	appID   = "com.clockwidget.app"
)

var (
	configPath string
	logLevel   string
	listenAddr string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Configuration file path (default: user config dir)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&listenAddr, "listen", "", "Serve the HTTP/websocket feed on this address (overrides feed.listen)")
}

func main() {
	flag.Parse()

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		slog.Error("invalid flag", "error", err)
		os.Exit(2)
	}
	logger := logging.New(os.Stderr, level)

	lock, err := platform.AcquireInstanceLock(appName)
	if err != nil {
		logger.Error("single instance", "error", err)
		return
	}
	defer func() {
		_ = lock.Release()
	}()

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

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(theme.HistoryIcon())

	clockScreen := screens.NewClockScreen(clockEngine.RequestResync)
	timerScreen := screens.NewTimerScreen(countdownEngine, config.DefaultCountdown)
	stopwatchScreen := screens.NewStopwatchScreen(stopwatchEngine)

	window := fyneApp.NewWindow("Clock")
	window.SetContent(screens.NewTabs(clockScreen, timerScreen, stopwatchScreen))
	window.Resize(fyne.NewSize(360, 420))

	var trayManager *tray.Manager
	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager = tray.New(desktopApp, tray.Callbacks{
			OnShow: func() {
				window.Show()
				window.RequestFocus()
			},
			OnToggleTimer: func() {
				toggleCountdown(countdownEngine, config.DefaultCountdown)
			},
			OnResetTimer: countdownEngine.Reset,
			OnToggleStopwatch: func() {
				toggleStopwatch(stopwatchEngine)
			},
			OnLap:  stopwatchEngine.RecordLap,
			OnQuit: fyneApp.Quit,
		})
		desktopApp.SetSystemTrayIcon(theme.HistoryIcon())
		window.SetCloseIntercept(window.Hide)
	} else {
		logger.Info("system tray unsupported on this platform")
	}

	screens.Bind(clockEngine.Subscribe(1), func(snapshot model.ClockSnapshot) {
		clockScreen.Render(snapshot)
		if trayManager != nil {
			trayManager.SetClock(snapshot)
		}
	})
	screens.Bind(countdownEngine.Subscribe(1), func(state model.CountdownState) {
		timerScreen.Render(state)
		if trayManager != nil {
			trayManager.SetCountdown(state)
		}
	})
	screens.Bind(stopwatchEngine.Subscribe(1), func(state model.StopwatchState) {
		stopwatchScreen.Render(state)
		if trayManager != nil {
			trayManager.SetStopwatch(state)
		}
	})

	sinks := notify.Multi{notify.LogSink{Logger: logger}}
	if audio, err := notify.NewAudioSink(config.Alert, logger); err != nil {
		logger.Warn("audio alert disabled", "error", err)
	} else {
		sinks = append(sinks, audio)
	}
	if config.Alert.Desktop {
		sinks = append(sinks, notify.DesktopSink{App: fyneApp})
	}
	go notify.Forward(ctx, countdownEngine.Completions(1), sinks)

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

	clockEngine.Start()
	frames.Start()

	window.Show()
	fyneApp.Run()

	cancel()
	frames.Stop()
	clockEngine.Stop()
	countdownEngine.Close()
	stopwatchEngine.Close()
}

func loadConfig() (model.Config, error) {
	if configPath != "" {
		return storage.LoadConfigFile(configPath)
	}
	config, _, err := storage.LoadConfig(appName)
	return config, err
}

func toggleCountdown(engine *countdown.Engine, preset time.Duration) {
	if engine.State().IsRunning {
		engine.Pause()
		return
	}
	engine.Start(preset)
}

func toggleStopwatch(engine *stopwatch.Engine) {
	if engine.State().IsRunning {
		engine.Stop()
		return
	}
	engine.Start()
}
