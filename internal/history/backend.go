package history

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned by a Backend whose stored data cannot be decoded.
var ErrCorrupt = errors.New("history: corrupt backing data")

// Backend persists the full list of sent-news records.
// Load on an empty or missing store returns no records and no error.
// Save replaces everything previously stored.
type Backend interface {
	Load() ([]Record, error)
	Save(records []Record) error
	String() string
}

type unavailable struct {
	name string
	err  error
}

// Unavailable is a Backend that could not be opened. Every Load and Save
// returns err, so a Store built on it runs with in-memory history only.
func Unavailable(name string, err error) Backend {
	return unavailable{name: name, err: err}
}

func (u unavailable) Load() ([]Record, error) {
	return nil, fmt.Errorf("%s unavailable: %w", u.name, u.err)
}

func (u unavailable) Save([]Record) error {
	return fmt.Errorf("%s unavailable: %w", u.name, u.err)
}

func (u unavailable) String() string {
	return u.name
}
