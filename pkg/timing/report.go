package timing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level selects the channel a timing report is written to.
type Level int

const (
	// LevelInfo writes reports to standard output.
	LevelInfo Level = iota
	// LevelDebug writes reports to standard error.
	LevelDebug
)

// ErrInvalidLevelValue is returned when a level literal is neither
// "info" nor "debug".
var ErrInvalidLevelValue = errors.New("invalid level value")

// ParseLevel converts the textual level of a directive into a Level.
func ParseLevel(text string) (Level, error) {
	switch text {
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf(`%w: %q (must be "info" or "debug")`, ErrInvalidLevelValue, text)
}

func (l Level) String() string {
	if l == LevelDebug {
		return "debug"
	}
	return "info"
}

var (
	outputMu sync.Mutex
	infoOut  io.Writer = os.Stdout
	debugOut io.Writer = os.Stderr
)

// SetOutput redirects report emission for both levels. Passing nil keeps
// the current writer for that level. Used by tests.
func SetOutput(info, debug io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if info != nil {
		infoOut = info
	}
	if debug != nil {
		debugOut = debug
	}
}

// Report emits one timing line for label. The line format is fixed:
//
//	[TIMING] Function '<label>' executed in <value><unit>
func Report(level Level, label string, elapsed time.Duration) {
	outputMu.Lock()
	defer outputMu.Unlock()
	w := infoOut
	if level == LevelDebug {
		w = debugOut
	}
	fmt.Fprintf(w, "[TIMING] Function '%s' executed in %s\n", label, FormatDuration(elapsed))
}
