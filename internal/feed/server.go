// Package feed serves the engine state over HTTP and pushes every change to
// websocket clients, so remote displays can follow the widget.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clockwidget/internal/core/model"
	"clockwidget/internal/core/observable"
	"clockwidget/internal/display"
)

const (
	shutdownTimeout = 5 * time.Second
	pumpBuffer      = 4
)

// ErrNoListenAddress is returned by Run when Options.Listen is empty.
var ErrNoListenAddress = errors.New("feed listen address not set")

// Clock is the clock engine surface the feed reads.
type Clock interface {
	Snapshot() model.ClockSnapshot
	Subscribe(buffer int) *observable.Subscription[model.ClockSnapshot]
	RequestResync()
}

// Countdown is the countdown engine surface the feed drives.
type Countdown interface {
	Start(duration time.Duration)
	Pause()
	Reset()
	State() model.CountdownState
	Subscribe(buffer int) *observable.Subscription[model.CountdownState]
	Completions(buffer int) *observable.Subscription[model.CountdownCompleted]
}

// Stopwatch is the stopwatch engine surface the feed drives.
type Stopwatch interface {
	Start()
	Stop()
	Reset()
	RecordLap()
	State() model.StopwatchState
	Subscribe(buffer int) *observable.Subscription[model.StopwatchState]
}

// Engines groups the engines exposed by the feed.
type Engines struct {
	Clock     Clock
	Countdown Countdown
	Stopwatch Stopwatch
}

// Options configures Server.
type Options struct {
	Listen string
	Logger *slog.Logger
}

// Server is the HTTP and websocket feed.
type Server struct {
	app     *fiber.App
	engines Engines
	options Options
	logger  *slog.Logger
	hub     *hub
}

// New builds the server and registers its routes. Nothing listens until Run.
func New(engines Engines, options Options) *Server {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.With("component", "feed")

	server := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "clockwidget",
			DisableStartupMessage: true,
		}),
		engines: engines,
		options: options,
		logger:  logger,
		hub:     newHub(logger),
	}
	server.routes()
	return server
}

// App exposes the fiber app, mainly for app.Test.
func (server *Server) App() *fiber.App {
	return server.app
}

// Run listens on Options.Listen and broadcasts engine changes until ctx is
// cancelled, then shuts the server down.
func (server *Server) Run(ctx context.Context) error {
	if server.options.Listen == "" {
		return ErrNoListenAddress
	}
	listener, err := net.Listen("tcp", server.options.Listen)
	if err != nil {
		return fmt.Errorf("feed listen: %w", err)
	}
	server.logger.Info("feed listening", "address", listener.Addr().String())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.app.Listener(listener); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("feed serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		server.hub.closeAll()
		err := server.app.ShutdownWithTimeout(shutdownTimeout)
		_ = listener.Close()
		if err != nil {
			return fmt.Errorf("feed shutdown: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		server.pump(groupCtx)
		return nil
	})
	return group.Wait()
}

func (server *Server) routes() {
	server.app.Use(recover.New())

	api := server.app.Group("/api")
	api.Get("/clock", server.getClock)
	api.Post("/clock/resync", server.resyncClock)

	api.Get("/countdown", server.getCountdown)
	api.Post("/countdown/start", server.startCountdown)
	api.Post("/countdown/pause", server.countdownCommand(server.engines.Countdown.Pause))
	api.Post("/countdown/reset", server.countdownCommand(server.engines.Countdown.Reset))

	api.Get("/stopwatch", server.getStopwatch)
	api.Post("/stopwatch/start", server.stopwatchCommand(server.engines.Stopwatch.Start))
	api.Post("/stopwatch/stop", server.stopwatchCommand(server.engines.Stopwatch.Stop))
	api.Post("/stopwatch/reset", server.stopwatchCommand(server.engines.Stopwatch.Reset))
	api.Post("/stopwatch/lap", server.stopwatchCommand(server.engines.Stopwatch.RecordLap))

	server.app.Use("/ws", requireUpgrade)
	server.app.Get("/ws", websocket.New(server.handleSocket))
}

func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func (server *Server) getClock(c *fiber.Ctx) error {
	return c.JSON(clockView(server.engines.Clock.Snapshot()))
}

func (server *Server) resyncClock(c *fiber.Ctx) error {
	server.engines.Clock.RequestResync()
	return c.SendStatus(fiber.StatusAccepted)
}

func (server *Server) getCountdown(c *fiber.Ctx) error {
	return c.JSON(countdownView(server.engines.Countdown.State()))
}

func (server *Server) startCountdown(c *fiber.Ctx) error {
	spec := c.Query("seconds")
	if spec == "" {
		spec = c.Query("duration")
	}
	duration, err := display.ParseSpec(spec)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	server.engines.Countdown.Start(duration)
	return c.JSON(countdownView(server.engines.Countdown.State()))
}

func (server *Server) countdownCommand(command func()) fiber.Handler {
	return func(c *fiber.Ctx) error {
		command()
		return c.JSON(countdownView(server.engines.Countdown.State()))
	}
}

func (server *Server) getStopwatch(c *fiber.Ctx) error {
	return c.JSON(stopwatchView(server.engines.Stopwatch.State()))
}

func (server *Server) stopwatchCommand(command func()) fiber.Handler {
	return func(c *fiber.Ctx) error {
		command()
		return c.JSON(stopwatchView(server.engines.Stopwatch.State()))
	}
}

func (server *Server) handleSocket(conn *websocket.Conn) {
	id := uuid.NewString()
	subscriber, ok := server.hub.add(id)
	if !ok {
		_ = conn.Close()
		return
	}
	defer server.hub.remove(id)
	logger := server.logger.With("client", id)
	logger.Info("feed client connected", "remote", conn.RemoteAddr().String())
	defer logger.Info("feed client disconnected")

	for _, message := range server.currentMessages() {
		if err := conn.WriteJSON(message); err != nil {
			logger.Debug("feed write failed", "error", err)
			return
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case message, ok := <-subscriber.send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(message); err != nil {
				logger.Debug("feed write failed", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (server *Server) currentMessages() []Message {
	return []Message{
		{Type: MessageTypeClock, Data: clockView(server.engines.Clock.Snapshot())},
		{Type: MessageTypeCountdown, Data: countdownView(server.engines.Countdown.State())},
		{Type: MessageTypeStopwatch, Data: stopwatchView(server.engines.Stopwatch.State())},
	}
}

// pump relays engine subscriptions to the hub until ctx is done.
func (server *Server) pump(ctx context.Context) {
	clockSub := server.engines.Clock.Subscribe(pumpBuffer)
	defer clockSub.Close()
	countdownSub := server.engines.Countdown.Subscribe(pumpBuffer)
	defer countdownSub.Close()
	completedSub := server.engines.Countdown.Completions(pumpBuffer)
	defer completedSub.Close()
	stopwatchSub := server.engines.Stopwatch.Subscribe(pumpBuffer)
	defer stopwatchSub.Close()

	clockCh := clockSub.C()
	countdownCh := countdownSub.C()
	completedCh := completedSub.C()
	stopwatchCh := stopwatchSub.C()

	for clockCh != nil || countdownCh != nil || completedCh != nil || stopwatchCh != nil {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-clockCh:
			if !ok {
				clockCh = nil
				continue
			}
			server.hub.broadcast(Message{Type: MessageTypeClock, Data: clockView(snapshot)})
		case state, ok := <-countdownCh:
			if !ok {
				countdownCh = nil
				continue
			}
			server.hub.broadcast(Message{Type: MessageTypeCountdown, Data: countdownView(state)})
		case event, ok := <-completedCh:
			if !ok {
				completedCh = nil
				continue
			}
			server.hub.broadcast(Message{Type: MessageTypeCompleted, Data: CompletedView{At: event.At}})
		case state, ok := <-stopwatchCh:
			if !ok {
				stopwatchCh = nil
				continue
			}
			server.hub.broadcast(Message{Type: MessageTypeStopwatch, Data: stopwatchView(state)})
		}
	}
	<-ctx.Done()
}
