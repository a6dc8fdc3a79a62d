package history

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/logistics-alert/internal/logger"
	"github.com/deusflow/logistics-alert/internal/news"
)

// TimeLayout is the sent_at format written to the backing store.
// It is a naive local timestamp with microseconds, matching files produced
// by earlier deployments so both can be pruned with the same comparison.
const TimeLayout = "2006-01-02T15:04:05.000000"

var readLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ErrNegativeRetention is returned by Prune for a negative retention window.
var ErrNegativeRetention = errors.New("history: retention days must be >= 0")

// Fingerprint identifies a news item for dedup purposes.
type Fingerprint struct {
	Title string
	URL   string
}

// Record is one delivered item as persisted.
type Record struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	SentAt string `json:"sent_at"`
}

// SentTime parses SentAt. Missing or unparseable values yield the Unix epoch,
// so such records are always the first to be pruned.
func (r Record) SentTime() time.Time {
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, r.SentAt, time.Local); err == nil {
			return t
		}
	}
	return time.Unix(0, 0)
}

// Store tracks which news items were already delivered.
// It is not safe for concurrent use; a single writer per backend is assumed.
type Store struct {
	backend Backend
	records []Record
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Store)

// WithClock overrides the time source used for sent_at and pruning.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Load opens the JSON history file at path. A missing file gives an empty
// store; a corrupt one is logged and also gives an empty store.
func Load(path string, opts ...Option) *Store {
	return Open(NewFileBackend(path), opts...)
}

// Open reads all records from backend once. Read failures never reach the
// caller: the store starts empty and the failure is logged.
func Open(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		log:     logger.Component("history"),
	}
	for _, opt := range opts {
		opt(s)
	}

	records, err := backend.Load()
	if err != nil {
		s.log.Warn("history unreadable, starting empty",
			"backend", backend.String(), "error", err)
		records = nil
	}
	s.records = records
	s.log.Debug("history loaded", "backend", backend.String(), "records", len(s.records))
	return s
}

// IsNew reports whether no stored record has the same title, or the same
// non-empty URL. Comparison is exact.
func (s *Store) IsNew(fp Fingerprint) bool {
	for _, r := range s.records {
		if r.Title == fp.Title {
			return false
		}
		if fp.URL != "" && r.URL == fp.URL {
			return false
		}
	}
	return true
}

// FilterNew returns the items not yet delivered, in their original order.
// Items are checked against history only, not against each other.
func (s *Store) FilterNew(items []news.Item) []news.Item {
	out := make([]news.Item, 0, len(items))
	for _, it := range items {
		if s.IsNew(Fingerprint{Title: it.Title, URL: it.URL}) {
			out = append(out, it)
		}
	}
	return out
}

// FingerprintsOf extracts the dedup identity of each item.
func FingerprintsOf(items []news.Item) []Fingerprint {
	fps := make([]Fingerprint, len(items))
	for i, it := range items {
		fps[i] = Fingerprint{Title: it.Title, URL: it.URL}
	}
	return fps
}

// MarkSent records every fingerprint with one shared timestamp and persists
// the store. On a persist error the in-memory records are kept.
func (s *Store) MarkSent(fps []Fingerprint) error {
	sentAt := s.now().Local().Format(TimeLayout)
	for _, fp := range fps {
		s.records = append(s.records, Record{Title: fp.Title, URL: fp.URL, SentAt: sentAt})
	}
	return s.persist()
}

// Prune drops every record sent at or before now minus days and persists.
// It returns how many records were removed.
func (s *Store) Prune(days int) (int, error) {
	if days < 0 {
		return 0, ErrNegativeRetention
	}
	cutoff := s.now().AddDate(0, 0, -days)

	kept := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.SentTime().After(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	s.records = kept

	if removed > 0 {
		s.log.Info("pruned history", "removed", removed, "kept", len(kept), "retention_days", days)
	}
	return removed, s.persist()
}

func (s *Store) persist() error {
	if err := s.backend.Save(s.records); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of the stored records.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Path describes where the store persists, e.g. the file path.
func (s *Store) Path() string {
	return s.backend.String()
}
