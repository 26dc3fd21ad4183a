// Package timing is the runtime support library that generated wrappers
// link against. It owns the duration threshold syntax, the human-readable
// duration formatter, and the report emission used by instrumented
// functions.
package timing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDurationFormat is returned when a duration literal cannot be
// parsed: unknown or missing unit suffix, malformed numeric part, or a
// negative value.
var ErrInvalidDurationFormat = errors.New("invalid duration format")

// ParseDuration converts a literal like "10ms", "1.5s", "500us" or
// "1000ns" into a time.Duration. The unit suffix must be one of "s",
// "ms", "us"/"µs" or "ns" and must follow the number immediately.
// Fractional values round to the nearest nanosecond.
func ParseDuration(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDurationFormat)
	}

	var number string
	var scale float64
	switch {
	case strings.HasSuffix(text, "ms"):
		number, scale = strings.TrimSuffix(text, "ms"), float64(time.Millisecond)
	case strings.HasSuffix(text, "us"):
		number, scale = strings.TrimSuffix(text, "us"), float64(time.Microsecond)
	case strings.HasSuffix(text, "µs"):
		number, scale = strings.TrimSuffix(text, "µs"), float64(time.Microsecond)
	case strings.HasSuffix(text, "ns"):
		number, scale = strings.TrimSuffix(text, "ns"), float64(time.Nanosecond)
	case strings.HasSuffix(text, "s"):
		number, scale = strings.TrimSuffix(text, "s"), float64(time.Second)
	default:
		return 0, fmt.Errorf("%w: %q must end with 's', 'ms', 'us' or 'ns'", ErrInvalidDurationFormat, text)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad numeric value %q", ErrInvalidDurationFormat, number)
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q must be non-negative", ErrInvalidDurationFormat, text)
	}

	return time.Duration(math.Round(value * scale)), nil
}

// FormatDuration renders d with the largest unit in {s, ms, µs, ns}
// whose magnitude is at least 1, with exactly three decimal digits.
// A zero duration formats as "0.000ns".
func FormatDuration(d time.Duration) string {
	ns := float64(d.Nanoseconds())
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.3fs", ns/float64(time.Second))
	case d >= time.Millisecond:
		return fmt.Sprintf("%.3fms", ns/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.3fµs", ns/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%.3fns", ns)
	}
}
