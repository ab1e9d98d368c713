package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: every call bumps the
// counter for the key by the given increment (1 for strict).
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	key, _ := args[0].(string)
	var increment int64 = 1
	if len(args) > 1 {
		if v, ok := args[1].(int64); ok {
			increment = v
		}
	}
	m.values[key] += increment
	return &mockRow{val: m.values[key]}
}

func TestGetNextNumberStrict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("PO")
	now := time.Now()
	year := now.Format("2006")

	num, err := svc.GetNextNumber(ctx, cfg, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("PO-%s-00001", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("PO-%s-00002", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}
}

func TestGetNextNumberCachedReservesRanges(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("SO")
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}
	now := time.Now()

	for i := 1; i <= 15; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, now)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		want := fmt.Sprintf("SO-%s-%05d", now.Format("2006"), i)
		if num != want {
			t.Errorf("call %d: expected %s, got %s", i, want, num)
		}
	}

	// 15 numbers from ranges of 10 means exactly two DB round trips.
	if q.calls != 2 {
		t.Errorf("expected 2 range reservations, got %d", q.calls)
	}
}

func TestSequencesAreIndependentPerPrefix(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	now := time.Now()

	po, err := svc.GetNextNumber(ctx, DefaultConfig("PO"), nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	so, err := svc.GetNextNumber(ctx, DefaultConfig("SO"), nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ParseNumber(po) != 1 || ParseNumber(so) != 1 {
		t.Errorf("expected both sequences to start at 1, got %s and %s", po, so)
	}
}

func TestBuildKey(t *testing.T) {
	period := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		reset string
		want  string
	}{
		{"year", "PO_2025"},
		{"month", "PO_2025_03"},
		{"never", "PO"},
	}
	for _, tt := range tests {
		cfg := Config{Prefix: "PO", ResetPeriod: tt.reset}
		if got := buildKey(cfg, period); got != tt.want {
			t.Errorf("reset %q: expected %s, got %s", tt.reset, tt.want, got)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	period := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	withYear := Config{Prefix: "PO", IncludeYear: true, PadWidth: 5}
	if got := formatNumber(withYear, period, 42); got != "PO-2025-00042" {
		t.Errorf("expected PO-2025-00042, got %s", got)
	}

	noYear := Config{Prefix: "ADJ", PadWidth: 3}
	if got := formatNumber(noYear, period, 7); got != "ADJ-007" {
		t.Errorf("expected ADJ-007, got %s", got)
	}
}

func TestParseNumber(t *testing.T) {
	if got := ParseNumber("PO-2025-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("ADJ-007"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := ParseNumber("garbage"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
