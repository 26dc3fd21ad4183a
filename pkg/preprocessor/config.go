package preprocessor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kestrel-xyz/timed/pkg/preprocessor/types"
	"github.com/kestrel-xyz/timed/pkg/timing"
)

var (
	// ErrUnknownConfigKey is returned for a directive key other than
	// name, level or threshold.
	ErrUnknownConfigKey = errors.New("unknown config key")

	// ErrDuplicateConfigKey is returned when a key appears twice in one
	// directive.
	ErrDuplicateConfigKey = errors.New("duplicate config key")

	// ErrMalformedArgument is returned when the argument list does not
	// scan as `key = "value"` pairs.
	ErrMalformedArgument = errors.New("malformed directive argument")
)

// ParseArgs parses the parenthesized argument list of a directive into
// a validated config. Keys may appear in any order and every key is
// optional; an empty list yields the defaults unchanged. The first
// error encountered is returned and nothing partial is kept.
func ParseArgs(raw string, defaults types.InstrumentationConfig) (types.InstrumentationConfig, error) {
	cfg := defaults

	pairs, err := scanPairs(raw)
	if err != nil {
		return cfg, err
	}

	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if seen[p.key] {
			return cfg, fmt.Errorf("%w: %q", ErrDuplicateConfigKey, p.key)
		}
		seen[p.key] = true

		switch p.key {
		case "name":
			cfg.Label = p.value
		case "level":
			level, err := timing.ParseLevel(p.value)
			if err != nil {
				return cfg, err
			}
			cfg.Level = level
		case "threshold":
			threshold, err := timing.ParseDuration(p.value)
			if err != nil {
				return cfg, err
			}
			cfg.Threshold = threshold
			cfg.HasThreshold = true
		default:
			return cfg, fmt.Errorf("%w: %q", ErrUnknownConfigKey, p.key)
		}
	}

	return cfg, nil
}

type pair struct {
	key   string
	value string
}

// scanPairs splits `key = "value", key = "value"` into pairs. Values
// are double-quoted Go string literals; a trailing comma is allowed.
func scanPairs(raw string) ([]pair, error) {
	s := argScanner{src: raw}
	var pairs []pair

	s.skipSpaces()
	for !s.done() {
		key := s.readIdent()
		if key == "" {
			return nil, fmt.Errorf("%w: expected key at %q", ErrMalformedArgument, s.rest())
		}
		s.skipSpaces()
		if !s.consume('=') {
			return nil, fmt.Errorf("%w: expected '=' after %q", ErrMalformedArgument, key)
		}
		s.skipSpaces()
		value, err := s.readString()
		if err != nil {
			return nil, fmt.Errorf("%w: value for %q: %v", ErrMalformedArgument, key, err)
		}
		pairs = append(pairs, pair{key: key, value: value})

		s.skipSpaces()
		if s.done() {
			break
		}
		if !s.consume(',') {
			return nil, fmt.Errorf("%w: expected ',' at %q", ErrMalformedArgument, s.rest())
		}
		s.skipSpaces()
	}

	return pairs, nil
}

type argScanner struct {
	src string
	pos int
}

func (s *argScanner) done() bool {
	return s.pos >= len(s.src)
}

func (s *argScanner) rest() string {
	return s.src[s.pos:]
}

func (s *argScanner) skipSpaces() {
	for !s.done() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *argScanner) consume(c byte) bool {
	if s.done() || s.src[s.pos] != c {
		return false
	}
	s.pos++
	return true
}

func (s *argScanner) readIdent() string {
	start := s.pos
	for !s.done() {
		c := s.src[s.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

func (s *argScanner) readString() (string, error) {
	if s.done() || s.src[s.pos] != '"' {
		return "", errors.New("expected a double-quoted string")
	}
	start := s.pos
	s.pos++
	for !s.done() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '"':
			s.pos++
			value, err := strconv.Unquote(s.src[start:s.pos])
			if err != nil {
				return "", fmt.Errorf("bad string literal %s", s.src[start:s.pos])
			}
			return value, nil
		}
		s.pos++
	}
	return "", fmt.Errorf("unterminated string %s", strings.TrimSpace(s.src[start:]))
}
