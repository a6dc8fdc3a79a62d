package history

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deusflow/logistics-alert/internal/news"
)

type memBackend struct {
	records []Record
	loadErr error
	saveErr error
	saves   int
}

func (m *memBackend) Load() ([]Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memBackend) Save(records []Record) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]Record(nil), records...)
	return nil
}

func (m *memBackend) String() string { return "memory" }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStore(t *testing.T, b Backend) (*Store, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)}
	return Open(b, WithClock(c.now), WithLogger(quiet)), c
}

func TestFilterNewIdempotentUntilMarked(t *testing.T) {
	s, _ := newTestStore(t, &memBackend{})
	items := []news.Item{
		{Title: "A", URL: "u1"},
		{Title: "B", URL: "u2"},
		{Title: "C", URL: "u3"},
	}

	first := s.FilterNew(items)
	second := s.FilterNew(items)
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected all items twice, got %d and %d", len(first), len(second))
	}
	for i := range items {
		if first[i] != items[i] || second[i] != items[i] {
			t.Errorf("order not preserved at %d", i)
		}
	}
}

func TestMarkSentMakesItemsOld(t *testing.T) {
	s, _ := newTestStore(t, &memBackend{})
	if err := s.MarkSent([]Fingerprint{{Title: "A", URL: "u1"}, {Title: "B", URL: "u2"}}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	tests := []struct {
		name string
		fp   Fingerprint
		want bool
	}{
		{"same title and url", Fingerprint{"A", "u1"}, false},
		{"same title, other url", Fingerprint{"A", "other"}, false},
		{"url match, different title", Fingerprint{"Z", "u1"}, false},
		{"fresh", Fingerprint{"Z", "u9"}, true},
		{"empty url never matches by url", Fingerprint{"Z", ""}, true},
		{"case differs", Fingerprint{"a", "U1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsNew(tt.fp); got != tt.want {
				t.Errorf("IsNew(%+v) = %v, want %v", tt.fp, got, tt.want)
			}
		})
	}
}

func TestMarkSentSharesTimestamp(t *testing.T) {
	s, c := newTestStore(t, &memBackend{})
	if err := s.MarkSent([]Fingerprint{{"A", "u1"}, {"B", "u2"}}); err != nil {
		t.Fatal(err)
	}
	recs := s.Records()
	if recs[0].SentAt != recs[1].SentAt {
		t.Errorf("timestamps differ: %q vs %q", recs[0].SentAt, recs[1].SentAt)
	}
	if want := c.t.Format(TimeLayout); recs[0].SentAt != want {
		t.Errorf("sent_at = %q, want %q", recs[0].SentAt, want)
	}
}

func TestSameTitleBatchBothPass(t *testing.T) {
	s, _ := newTestStore(t, &memBackend{})
	got := s.FilterNew([]news.Item{{Title: "A", URL: "u1"}, {Title: "A", URL: "u2"}})
	if len(got) != 2 {
		t.Fatalf("expected both items, got %d", len(got))
	}
}

func TestEmptyTitlesMatch(t *testing.T) {
	s, _ := newTestStore(t, &memBackend{})
	if err := s.MarkSent([]Fingerprint{{Title: "", URL: "u1"}}); err != nil {
		t.Fatal(err)
	}
	if s.IsNew(Fingerprint{Title: "", URL: "u2"}) {
		t.Error("empty title should match an empty stored title")
	}
}

func TestPruneZeroEmpties(t *testing.T) {
	s, c := newTestStore(t, &memBackend{})
	_ = s.MarkSent([]Fingerprint{{"A", "u1"}})
	c.advance(time.Hour)
	_ = s.MarkSent([]Fingerprint{{"B", "u2"}})

	removed, err := s.Prune(0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 || s.Len() != 0 {
		t.Errorf("removed=%d len=%d, want 2 and 0", removed, s.Len())
	}
}

func TestPruneRetentionWindow(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantLen int
	}{
		{"after 29 days kept", 29 * 24 * time.Hour, 1},
		{"after 31 days removed", 31 * 24 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newTestStore(t, &memBackend{})
			if err := s.MarkSent([]Fingerprint{{"A", "u1"}}); err != nil {
				t.Fatal(err)
			}
			c.advance(tt.elapsed)
			if _, err := s.Prune(30); err != nil {
				t.Fatal(err)
			}
			if s.Len() != tt.wantLen {
				t.Errorf("len = %d, want %d", s.Len(), tt.wantLen)
			}
		})
	}
}

func TestPruneUnparseableTimestamp(t *testing.T) {
	b := &memBackend{records: []Record{
		{Title: "bad", URL: "u1", SentAt: "yesterday-ish"},
		{Title: "missing", URL: "u2"},
		{Title: "ok", URL: "u3", SentAt: "2025-03-09T08:00:00.000000"},
	}}
	s, _ := newTestStore(t, b)

	removed, err := s.Prune(30)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	recs := s.Records()
	if len(recs) != 1 || recs[0].Title != "ok" {
		t.Errorf("unexpected records after prune: %+v", recs)
	}
}

func TestPruneNegativeRejected(t *testing.T) {
	b := &memBackend{}
	s, _ := newTestStore(t, b)
	_ = s.MarkSent([]Fingerprint{{"A", "u1"}})
	saves := b.saves

	if _, err := s.Prune(-1); !errors.Is(err, ErrNegativeRetention) {
		t.Fatalf("expected ErrNegativeRetention, got %v", err)
	}
	if s.Len() != 1 || b.saves != saves {
		t.Error("negative prune must not change or persist the store")
	}
}

func TestPruneHugeRetentionKeepsEverything(t *testing.T) {
	s, c := newTestStore(t, &memBackend{})
	_ = s.MarkSent([]Fingerprint{{"A", "u1"}})
	c.advance(time.Minute)

	for _, days := range []int{106752, 200000, math.MaxInt32} {
		removed, err := s.Prune(days)
		if err != nil {
			t.Fatalf("Prune(%d): %v", days, err)
		}
		if removed != 0 || s.Len() != 1 {
			t.Fatalf("Prune(%d) removed %d, len %d; nothing should expire", days, removed, s.Len())
		}
	}
}

func TestCorruptBackendStartsEmpty(t *testing.T) {
	s, _ := newTestStore(t, &memBackend{loadErr: ErrCorrupt})
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d records", s.Len())
	}
	if !s.IsNew(Fingerprint{"A", "u1"}) {
		t.Error("everything is new in an empty store")
	}
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	b := &memBackend{saveErr: errors.New("disk full")}
	s, _ := newTestStore(t, b)

	err := s.MarkSent([]Fingerprint{{"A", "u1"}})
	if err == nil {
		t.Fatal("expected persist error")
	}
	if s.IsNew(Fingerprint{"A", ""}) {
		t.Error("in-memory store should stay authoritative after a failed persist")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent_news.json")
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)}

	s := Load(path, WithClock(c.now), WithLogger(quiet))
	_ = s.MarkSent([]Fingerprint{{"old", "u-old"}})
	c.advance(20 * 24 * time.Hour)
	_ = s.MarkSent([]Fingerprint{{"A", "u1"}, {"B", ""}})
	if _, err := s.Prune(10); err != nil {
		t.Fatal(err)
	}

	reloaded := Load(path, WithClock(c.now), WithLogger(quiet))
	probes := []Fingerprint{
		{"old", "u-old"}, {"A", "x"}, {"x", "u1"}, {"B", ""}, {"new", "u9"}, {"", ""},
	}
	for _, fp := range probes {
		if got, want := reloaded.IsNew(fp), s.IsNew(fp); got != want {
			t.Errorf("IsNew(%+v): reloaded %v, in-memory %v", fp, got, want)
		}
	}
	if reloaded.Len() != 2 {
		t.Errorf("reloaded len = %d, want 2", reloaded.Len())
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent_news.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Load(path, WithLogger(quiet))
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope.json"), WithLogger(quiet))
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestSentTimeLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-10T08:00:00.123456", time.Date(2025, 3, 10, 8, 0, 0, 123456000, time.Local)},
		{"2025-03-10T08:00:00", time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)},
		{"2025-03-10 08:00:00", time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)},
		{"2025-03-10T08:00:00Z", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)},
		{"2025-03-10T08:00:00+02:00", time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)},
		{"2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)},
		{"", time.Unix(0, 0)},
		{"garbage", time.Unix(0, 0)},
	}
	for _, tt := range tests {
		got := Record{SentAt: tt.in}.SentTime()
		if !got.Equal(tt.want) {
			t.Errorf("SentTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
