package snapshot_test

import (
	"testing"
	"time"

	"github.com/webhoard/webhoard/internal/snapshot"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	valid := []string{"0", "100", "100.5", "1712345678.000042", "100.500000"}
	for _, raw := range valid {
		if _, err := snapshot.ParseTimestamp(raw); err != nil {
			t.Errorf("ParseTimestamp(%q) unexpected error: %v", raw, err)
		}
	}

	invalid := []string{"", "abc", "-100", "100.x", "1712345678 "}
	for _, raw := range invalid {
		if _, err := snapshot.ParseTimestamp(raw); err == nil {
			t.Errorf("ParseTimestamp(%q) expected error", raw)
		}
	}
}

func TestTimestampCompare_Numeric(t *testing.T) {
	t.Parallel()

	// Lexicographic comparison would put "9.0" after "100.0".
	a := snapshot.Timestamp("9.0")
	b := snapshot.Timestamp("100.0")
	if !a.Before(b) {
		t.Fatalf("expected %s < %s numerically", a, b)
	}

	if !b.AtOrAfter(a) {
		t.Fatalf("expected %s >= %s", b, a)
	}
	if !b.AtOrAfter(b) {
		t.Fatal("expected AtOrAfter to include equality")
	}
}

func TestTimestampEquivalent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"100.5", "100.500000", true},
		{"100", "100.000000", true},
		{"100.5", "100.50", true},
		{"100.5", "100.05", false},
		{"100", "101", false},
		{"abc", "abc", false},
	}

	for _, tt := range tests {
		a, b := snapshot.Timestamp(tt.a), snapshot.Timestamp(tt.b)
		if got := a.Equivalent(b); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFromTime(t *testing.T) {
	t.Parallel()

	at := time.Unix(1712345678, 42_000)
	ts := snapshot.FromTime(at)
	if ts != "1712345678.000042" {
		t.Fatalf("FromTime = %s, want 1712345678.000042", ts)
	}
}

func TestGenerator_StrictlyIncreasing(t *testing.T) {
	t.Parallel()

	gen := snapshot.NewGenerator(nil)

	prev := gen.Next()
	for range 100 {
		next := gen.Next()
		if !prev.Before(next) {
			t.Fatalf("expected %s < %s", prev, next)
		}
		prev = next
	}
}

func TestGenerator_SkipsTakenTimestamps(t *testing.T) {
	t.Parallel()

	issued := make(map[snapshot.Timestamp]struct{})
	gen := snapshot.NewGenerator(func(ts snapshot.Timestamp) bool {
		_, taken := issued[ts]
		return taken
	})

	for range 50 {
		ts := gen.Next()
		if _, dup := issued[ts]; dup {
			t.Fatalf("generator reissued %s", ts)
		}
		issued[ts] = struct{}{}
	}
}
