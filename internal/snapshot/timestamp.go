package snapshot

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const microsPerSecond = 1_000_000

// Timestamp is a string-encoded fixed-point number of seconds and
// microseconds since the Unix epoch ("1712345678.000042"). It names the
// snapshot folder on disk and serves as a stable identity key that
// survives URL edits, so it is compared numerically, never
// lexicographically.
type Timestamp string

// ParseTimestamp validates a raw string as a timestamp.
func ParseTimestamp(raw string) (Timestamp, error) {
	ts := Timestamp(raw)
	if _, err := ts.micros(); err != nil {
		return "", err
	}
	return ts, nil
}

// FromTime converts a wall-clock time to a timestamp.
func FromTime(t time.Time) Timestamp {
	return fromMicros(t.UnixMicro())
}

func fromMicros(micros int64) Timestamp {
	return Timestamp(fmt.Sprintf("%d.%06d", micros/microsPerSecond, micros%microsPerSecond))
}

// micros returns the total microsecond value of the timestamp.
func (t Timestamp) micros() (int64, error) {
	raw := string(t)
	secPart, fracPart, _ := strings.Cut(raw, ".")

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil || sec < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}

	if fracPart == "" {
		return sec * microsPerSecond, nil
	}
	if len(fracPart) > 6 {
		fracPart = fracPart[:6]
	}
	// Right-pad so ".5" means 500000 microseconds.
	fracPart += strings.Repeat("0", 6-len(fracPart))

	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}
	return sec*microsPerSecond + frac, nil
}

// Canonical returns the normalized textual form, zero-padded to six
// fractional digits, so equivalent timestamps canonicalize to the same
// string. Invalid timestamps are returned unchanged.
func (t Timestamp) Canonical() Timestamp {
	m, err := t.micros()
	if err != nil {
		return t
	}
	return fromMicros(m)
}

// Valid reports whether the timestamp parses as a fixed-point number.
func (t Timestamp) Valid() bool {
	if t == "" {
		return false
	}
	_, err := t.micros()
	return err == nil
}

// Compare returns -1, 0 or 1 comparing two timestamps numerically.
// Invalid timestamps sort before valid ones.
func (t Timestamp) Compare(other Timestamp) int {
	a, errA := t.micros()
	b, errB := other.micros()
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(string(t), string(other))
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is strictly earlier than other.
func (t Timestamp) Before(other Timestamp) bool {
	return t.Compare(other) < 0
}

// AtOrAfter reports whether t is at or later than other.
func (t Timestamp) AtOrAfter(other Timestamp) bool {
	return t.Compare(other) >= 0
}

// Equivalent reports whether two timestamps denote the same instant,
// regardless of textual form ("100.5" vs "100.500000").
func (t Timestamp) Equivalent(other Timestamp) bool {
	return t.Valid() && other.Valid() && t.Compare(other) == 0
}

// Generator issues strictly increasing timestamps that never collide
// with already-taken ones. Safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	last  int64
	taken func(Timestamp) bool
	now   func() time.Time
}

// NewGenerator creates a generator. taken reports whether a candidate
// timestamp already exists (e.g. in the index); it may be nil.
func NewGenerator(taken func(Timestamp) bool) *Generator {
	return &Generator{taken: taken, now: time.Now}
}

// Next returns a fresh timestamp, retrying by bumping one microsecond
// until the candidate is both monotonically increasing and unclaimed.
func (g *Generator) Next() Timestamp {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := g.now().UnixMicro()
	for {
		if candidate <= g.last {
			candidate = g.last + 1
		}
		ts := fromMicros(candidate)
		if g.taken != nil && g.taken(ts) {
			candidate++
			continue
		}
		g.last = candidate
		return ts
	}
}
