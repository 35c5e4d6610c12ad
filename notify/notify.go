// Package notify carries user-facing notifications and error logs out of the
// migration and rendering code. Both calls are fire-and-forget.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier receives messages meant for the user and errors meant for the
// log. Implementations must not block and must not panic.
type Notifier interface {
	NotifyUser(message string)
	LogError(message string, cause error)
}

// SetupLogger configures the global zerolog logger. Console output is
// human-readable; otherwise JSON lines are written to stderr.
func SetupLogger(level string, console bool) {
	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = log.With().Timestamp().Logger()
}

// LogNotifier writes errors to a zerolog logger and, when out is non-nil,
// prints user notifications to out as well.
type LogNotifier struct {
	logger zerolog.Logger
	out    io.Writer
	mu     sync.Mutex
}

// New creates a LogNotifier. A nil out only logs notifications.
func New(logger zerolog.Logger, out io.Writer) *LogNotifier {
	return &LogNotifier{logger: logger, out: out}
}

func (n *LogNotifier) NotifyUser(message string) {
	n.logger.Warn().Str("kind", "notification").Msg(message)
	if n.out == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "! %s\n", message)
}

func (n *LogNotifier) LogError(message string, cause error) {
	n.logger.Error().Err(cause).Msg(message)
}

// Discard drops everything. Useful in tests and batch tools.
type Discard struct{}

func (Discard) NotifyUser(string)      {}
func (Discard) LogError(string, error) {}

// Recorder keeps every notification and error in memory.
type Recorder struct {
	mu            sync.Mutex
	Notifications []string
	Errors        []string
}

func (r *Recorder) NotifyUser(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, message)
}

func (r *Recorder) LogError(message string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cause != nil {
		message = message + ": " + cause.Error()
	}
	r.Errors = append(r.Errors, message)
}
