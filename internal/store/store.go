// Package store provides the in-memory keyed collection of user records.
// It is not safe for concurrent use; the dispatcher is its only mutator.
package store

import (
	"sort"
	"strings"
	"time"

	"github.com/zarlcorp/zrecord/internal/record"
	"github.com/zarlcorp/zrecord/internal/synth"
)

// validation bounds enforced by callers before mutating the store
const (
	MinAge = 1
	MaxAge = 120

	MinGenerate = 1
	MaxGenerate = 1000
)

// Entry pairs a key with its record.
type Entry struct {
	Name string
	record.Record
}

// Source supplies synthetic record fields for GenerateSynthetic.
type Source interface {
	Key() string
	Email(i int) string
	Phone() string
	Age() int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = now }
}

// WithSource overrides the synthetic record source.
func WithSource(src Source) Option {
	return func(s *Store) { s.src = src }
}

// Store maps case-sensitive names to records.
type Store struct {
	records map[string]record.Record
	clock   func() time.Time
	src     Source
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]record.Record),
		clock:   time.Now,
		src:     synth.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now returns the current time from the store clock.
func (s *Store) Now() time.Time {
	return s.clock()
}

// ValidAge reports whether age is acceptable for a new record.
func ValidAge(age int) bool {
	return age >= MinAge && age <= MaxAge
}

// ValidGenerateCount reports whether n synthetic records may be generated.
func ValidGenerateCount(n int) bool {
	return n >= MinGenerate && n <= MaxGenerate
}

// Upsert inserts or replaces the record under name.
func (s *Store) Upsert(name string, r record.Record) {
	s.records[name] = r
}

// Get returns the record under name.
func (s *Store) Get(name string) (record.Record, bool) {
	r, ok := s.records[name]
	return r, ok
}

// Delete removes name and reports whether it was present.
func (s *Store) Delete(name string) bool {
	if _, ok := s.records[name]; !ok {
		return false
	}
	delete(s.records, name)
	return true
}

// Update overwrites the mutable fields of an existing record and stamps its
// modification time, which always moves strictly forward. CreatedAt is left
// untouched. The age is not validated.
func (s *Store) Update(name string, age int, email, phone string) bool {
	r, ok := s.records[name]
	if !ok {
		return false
	}
	r.Age = age
	r.Email = email
	r.Phone = phone
	now := s.Now()
	if !now.After(r.LastModifiedAt) {
		now = r.LastModifiedAt.Add(time.Nanosecond)
	}
	r.LastModifiedAt = now
	s.records[name] = r
	return true
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// List returns every record sorted by name ascending.
func (s *Store) List() []Entry {
	entries := make([]Entry, 0, len(s.records))
	for _, name := range s.names() {
		entries = append(entries, Entry{Name: name, Record: s.records[name]})
	}
	return entries
}

// Search returns, in name order, the names whose key, email or phone
// contains term. Matching is literal and case-sensitive.
func (s *Store) Search(term string) []string {
	var out []string
	for _, name := range s.names() {
		r := s.records[name]
		if strings.Contains(name, term) ||
			strings.Contains(r.Email, term) ||
			strings.Contains(r.Phone, term) {
			out = append(out, name)
		}
	}
	return out
}

// Clear removes every record and returns how many there were.
func (s *Store) Clear() int {
	n := len(s.records)
	clear(s.records)
	return n
}

// GenerateSynthetic inserts count synthetic records and returns their names
// in creation order. Bounds are the caller's responsibility.
func (s *Store) GenerateSynthetic(count int) []string {
	now := s.Now()
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name := s.src.Key()
		s.records[name] = record.New(s.src.Age(), s.src.Email(i), s.src.Phone(), now)
		names = append(names, name)
	}
	return names
}

func (s *Store) names() []string {
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
