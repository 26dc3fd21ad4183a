// Package types holds the configuration record shared between the
// directive parser and the AST rewriting layer.
package types

import (
	"time"

	"github.com/kestrel-xyz/timed/pkg/timing"
)

// InstrumentationConfig is the validated form of one directive's
// argument list. It is immutable once parsed and owned by the single
// pipeline invocation that created it.
type InstrumentationConfig struct {
	// Label overrides the reported function name. Empty means the
	// function's own name is used.
	Label string

	// Level selects the report channel.
	Level timing.Level

	// Threshold suppresses the report unless the measured elapsed time
	// is at least this long. Only meaningful when HasThreshold is set.
	Threshold    time.Duration
	HasThreshold bool

	// WithSpan makes the wrapper enter a span scope around the timed
	// region. Toggled by the project manifest, not by the directive.
	WithSpan bool
}

// ResolveLabel returns the label a report should carry for a function
// named funcName.
func (c InstrumentationConfig) ResolveLabel(funcName string) string {
	if c.Label != "" {
		return c.Label
	}
	return funcName
}
