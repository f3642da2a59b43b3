// Package interactive provides the terminal front end of clockctl.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"clockwidget/internal/core/clock"
	"clockwidget/internal/core/model"
	"clockwidget/internal/display"
)

const refreshTimeout = 15 * time.Second

// Clock is the clock engine surface used by the console.
type Clock interface {
	Snapshot() model.ClockSnapshot
	Resync(ctx context.Context) error
}

// Countdown is the countdown engine surface used by the console.
type Countdown interface {
	Start(duration time.Duration)
	Pause()
	Reset()
	State() model.CountdownState
	Target() time.Duration
}

// Stopwatch is the stopwatch engine surface used by the console.
type Stopwatch interface {
	Start()
	Stop()
	Reset()
	RecordLap()
	State() model.StopwatchState
}

// Engines groups what the console drives.
type Engines struct {
	Clock     Clock
	Countdown Countdown
	Stopwatch Stopwatch
	// DefaultCountdown is used by "timer start" without an argument.
	DefaultCountdown time.Duration
}

// Console handles the interactive command loop.
type Console struct {
	engines Engines
	rl      *readline.Instance

	mu  sync.Mutex
	out io.Writer
}

// New creates a console reading from the terminal.
func New(engines Engines) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "clock> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("clock"),
			readline.PcItem("refresh"),
			readline.PcItem("timer",
				readline.PcItem("start"),
				readline.PcItem("pause"),
				readline.PcItem("reset"),
				readline.PcItem("status"),
			),
			readline.PcItem("sw",
				readline.PcItem("start"),
				readline.PcItem("stop"),
				readline.PcItem("reset"),
				readline.PcItem("lap"),
				readline.PcItem("status"),
			),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{engines: engines, rl: rl, out: rl.Stdout()}, nil
}

// NewWithOutput creates a console without a terminal. Commands are fed
// through Execute and their output goes to out.
func NewWithOutput(engines Engines, out io.Writer) *Console {
	return &Console{engines: engines, out: out}
}

// Stdout returns a writer that cooperates with the prompt. Use it for log
// output.
func (console *Console) Stdout() io.Writer {
	if console.rl != nil {
		return console.rl.Stdout()
	}
	return console.out
}

// Run reads commands until quit, EOF or ctx is done, then calls cancel.
func (console *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	if console.rl == nil {
		cancel()
		return
	}
	defer console.rl.Close()

	console.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := console.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			console.println("Exiting...")
			cancel()
			return
		}

		if quit := console.Execute(ctx, line); quit {
			console.println("Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It reports whether the user asked to quit.
func (console *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		console.printHelp()
	case "clock", "c":
		console.cmdClock()
	case "refresh":
		console.cmdRefresh(ctx)
	case "timer", "t":
		console.cmdTimer(args)
	case "sw", "stopwatch":
		console.cmdStopwatch(args)
	case "quit", "exit", "q":
		return true
	default:
		console.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

// OnCountdownCompleted announces a finished countdown on the console.
func (console *Console) OnCountdownCompleted() {
	console.println("*** Time's up! ***")
}

func (console *Console) cmdClock() {
	snapshot := console.engines.Clock.Snapshot()
	source := "network"
	if !snapshot.IsAuthoritative {
		source = "local"
	}
	console.printf("%s  %s  [%s]\n", display.FormatClock(snapshot), display.FormatZone(snapshot), source)
}

func (console *Console) cmdRefresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	err := console.engines.Clock.Resync(ctx)
	switch {
	case errors.Is(err, clock.ErrResyncInFlight):
		console.println("A resync is already running.")
		return
	case errors.Is(err, clock.ErrStopped):
		console.println("Clock is stopped.")
		return
	case err != nil:
		console.printf("Time service unavailable, using local time: %v\n", err)
	}
	console.cmdClock()
}

func (console *Console) cmdTimer(args []string) {
	if len(args) == 0 {
		console.println("Usage: timer start [mm:ss|seconds] | pause | reset | status")
		return
	}
	countdown := console.engines.Countdown

	switch strings.ToLower(args[0]) {
	case "start":
		duration := console.engines.DefaultCountdown
		if len(args) > 1 {
			parsed, err := display.ParseSpec(args[1])
			if err != nil {
				console.printf("Invalid duration %q: %v\n", args[1], err)
				return
			}
			duration = parsed
		}
		countdown.Start(duration)
	case "pause":
		countdown.Pause()
	case "reset":
		countdown.Reset()
	case "status":
	default:
		console.printf("Unknown timer command: %s\n", args[0])
		return
	}
	console.printTimer(countdown.State(), countdown.Target())
}

func (console *Console) printTimer(state model.CountdownState, target time.Duration) {
	status := "idle"
	switch {
	case state.IsRunning:
		status = "running"
	case state.Remaining > 0:
		status = "paused"
	}
	if target > 0 {
		console.printf("Timer %s of %s (%s)\n", display.FormatCountdown(state.Remaining), display.FormatCountdown(target), status)
		return
	}
	console.printf("Timer %s (%s)\n", display.FormatCountdown(state.Remaining), status)
}

func (console *Console) cmdStopwatch(args []string) {
	if len(args) == 0 {
		console.println("Usage: sw start | stop | reset | lap | status")
		return
	}
	stopwatch := console.engines.Stopwatch

	switch strings.ToLower(args[0]) {
	case "start":
		stopwatch.Start()
	case "stop":
		stopwatch.Stop()
	case "reset":
		stopwatch.Reset()
	case "lap":
		stopwatch.RecordLap()
		state := stopwatch.State()
		if n := len(state.Laps); n > 0 {
			console.println(display.FormatLap(n-1, state.Laps[n-1]))
		}
		return
	case "status":
	default:
		console.printf("Unknown stopwatch command: %s\n", args[0])
		return
	}
	console.printStopwatch(stopwatch.State())
}

func (console *Console) printStopwatch(state model.StopwatchState) {
	status := "stopped"
	if state.IsRunning {
		status = "running"
	}
	console.printf("Stopwatch %s (%s)\n", display.FormatStopwatch(state.Elapsed), status)
	for index, lap := range state.Laps {
		console.printf("  %s\n", display.FormatLap(index, lap))
	}
}

func (console *Console) printHelp() {
	console.println(`
Commands:
  clock                     - Show the current time and zone
  refresh                   - Resync the clock with the time service now
  timer start [mm:ss|secs]  - Start or resume the countdown
  timer pause|reset|status  - Control the countdown
  sw start|stop|reset       - Control the stopwatch
  sw lap                    - Record a lap
  sw status                 - Show elapsed time and laps
  help                      - Show this help
  quit                      - Exit`)
}

func (console *Console) println(text string) {
	console.mu.Lock()
	defer console.mu.Unlock()
	fmt.Fprintln(console.out, text)
}

func (console *Console) printf(format string, args ...any) {
	console.mu.Lock()
	defer console.mu.Unlock()
	fmt.Fprintf(console.out, format, args...)
}
