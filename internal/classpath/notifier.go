package classpath

import (
	"log/slog"
	"os"
)

// Notifier receives mapping progress. Implementations must not call back
// into the index that is notifying them.
type Notifier interface {
	// StartMapping fires once before a top-level initialization scans.
	StartMapping()
	// Mapping describes the directory or archive about to be scanned.
	Mapping(msg string)
	// MappingError reports an entry that contributed no classes.
	MappingError(entry string, err error)
	// EndMapping pairs with StartMapping.
	EndMapping()
}

// LogNotifier writes progress to a slog.Logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier logs through l, or to stderr when l is nil.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &LogNotifier{Logger: l}
}

func (n *LogNotifier) StartMapping() { n.Logger.Info("start classpath mapping") }

func (n *LogNotifier) Mapping(msg string) { n.Logger.Info("mapping", "component", msg) }

func (n *LogNotifier) MappingError(entry string, err error) {
	n.Logger.Error("error constructing classpath", "entry", entry, "error", err)
}

func (n *LogNotifier) EndMapping() { n.Logger.Info("end classpath mapping") }

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) StartMapping() {}
func (NopNotifier) Mapping(string) {}
func (NopNotifier) MappingError(string, error) {}
func (NopNotifier) EndMapping() {}
