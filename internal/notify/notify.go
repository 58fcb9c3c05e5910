// Package notify delivers fire-and-forget user-facing messages about cart
// operation outcomes. Delivery failures are never reported back to the cart.
package notify

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Severity classifies a notification for presentation purposes.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Notification is a single user-facing message tied to one cart operation
// outcome. Message is display copy; Operation and Slug are for filtering.
type Notification struct {
	Severity  Severity
	Operation string
	Slug      string
	Message   string
}

// Notifier consumes notifications. Implementations must not block the caller
// for long and must never panic.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a plain function to the Notifier interface.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a structured log. Used when no
// interactive surface is attached.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier creates a LogNotifier on the given logger.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

func (n *LogNotifier) Notify(msg Notification) {
	fields := []zap.Field{
		zap.String("operation", msg.Operation),
		zap.String("slug", msg.Slug),
	}
	switch msg.Severity {
	case SeverityError:
		n.lg.Error(msg.Message, fields...)
	case SeverityWarn:
		n.lg.Warn(msg.Message, fields...)
	default:
		n.lg.Info(msg.Message, fields...)
	}
}

// WriterNotifier prints notification copy to an interactive consumer, one
// message per line. Errors and warnings are prefixed with their severity.
type WriterNotifier struct {
	w io.Writer
}

// NewWriterNotifier creates a WriterNotifier on the given writer.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(msg Notification) {
	if msg.Severity == SeverityInfo {
		fmt.Fprintln(n.w, msg.Message)
		return
	}
	fmt.Fprintf(n.w, "%s: %s\n", msg.Severity, msg.Message)
}
