// Package subscriber manages the newsletter recipient list in a single
// flat file. The whole list lives in memory and every mutation rewrites the
// backing file atomically.
package subscriber

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Subscriber is one recipient record. Email is the unique key.
type Subscriber struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Store holds the subscriber list and its backing file. Uniqueness is
// enforced by scanning before insert, which is fine at the hundreds-to-
// low-thousands scale this is built for. There is no locking: the store
// assumes a single process.
type Store struct {
	path   string
	subs   []Subscriber
	logger zerolog.Logger
}

// Open loads the store, creating an empty file of the format implied by
// the extension (.json or .csv) on first use.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.With().Str("component", "subscriber_store").Logger(),
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".csv":
	default:
		return nil, fmt.Errorf("unsupported subscriber file format %q", ext)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("create subscriber file: %w", err)
		}
		s.logger.Info().Str("path", path).Msg("created empty subscriber file")
		return s, nil
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	s.logger.Debug().Int("count", len(s.subs)).Msg("subscribers loaded")
	return s, nil
}

func (s *Store) isCSV() bool {
	return strings.EqualFold(filepath.Ext(s.path), ".csv")
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read subscriber file: %w", err)
	}

	if s.isCSV() {
		return s.loadCSV(data)
	}

	var subs []Subscriber
	if len(data) > 0 {
		// Older records may predate the active flag; absent means active.
		var raw []map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse subscriber file: %w", err)
		}
		for _, entry := range raw {
			sub := Subscriber{Active: true}
			if v, ok := entry["email"].(string); ok {
				sub.Email = v
			}
			if v, ok := entry["name"].(string); ok {
				sub.Name = v
			}
			if v, ok := entry["active"].(bool); ok {
				sub.Active = v
			}
			subs = append(subs, sub)
		}
	}
	s.subs = subs
	return nil
}

func (s *Store) loadCSV(data []byte) error {
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return fmt.Errorf("parse subscriber file: %w", err)
	}

	var subs []Subscriber
	for i, record := range records {
		if i == 0 || len(record) == 0 {
			continue // header
		}
		sub := Subscriber{Email: record[0], Active: true}
		if len(record) > 1 {
			sub.Name = record[1]
		}
		if len(record) > 2 && record[2] != "" {
			v := strings.ToLower(record[2])
			sub.Active = v == "true" || v == "yes" || v == "1"
		}
		subs = append(subs, sub)
	}
	s.subs = subs
	return nil
}

// save rewrites the whole file through a temp file and rename, so a crash
// mid-write leaves the previous version intact.
func (s *Store) save() error {
	var data []byte
	if s.isCSV() {
		var b strings.Builder
		w := csv.NewWriter(&b)
		_ = w.Write([]string{"email", "name", "active"})
		for _, sub := range s.subs {
			_ = w.Write([]string{sub.Email, sub.Name, fmt.Sprintf("%t", sub.Active)})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("encode subscribers: %w", err)
		}
		data = []byte(b.String())
	} else {
		encoded, err := json.MarshalIndent(s.subs, "", "  ")
		if err != nil {
			return fmt.Errorf("encode subscribers: %w", err)
		}
		if s.subs == nil {
			encoded = []byte("[]")
		}
		data = encoded
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write subscriber file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace subscriber file: %w", err)
	}
	return nil
}

// Add validates the address and upserts the record: an existing email has
// its name updated and is reactivated, otherwise a new active record is
// appended.
func (s *Store) Add(email, name string) error {
	if !emailRe.MatchString(email) {
		return fmt.Errorf("invalid email address %q", email)
	}

	for i := range s.subs {
		if s.subs[i].Email == email {
			if name != "" {
				s.subs[i].Name = name
			}
			s.subs[i].Active = true
			if err := s.save(); err != nil {
				return err
			}
			s.logger.Info().Str("email", email).Msg("subscriber updated")
			return nil
		}
	}

	s.subs = append(s.subs, Subscriber{Email: email, Name: name, Active: true})
	if err := s.save(); err != nil {
		return err
	}
	s.logger.Info().Str("email", email).Msg("subscriber added")
	return nil
}

// Remove deletes the first matching record.
func (s *Store) Remove(email string) error {
	for i := range s.subs {
		if s.subs[i].Email == email {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			if err := s.save(); err != nil {
				return err
			}
			s.logger.Info().Str("email", email).Msg("subscriber removed")
			return nil
		}
	}
	return fmt.Errorf("subscriber %q not found", email)
}

// SetActive flips the active flag on a record.
func (s *Store) SetActive(email string, active bool) error {
	for i := range s.subs {
		if s.subs[i].Email == email {
			s.subs[i].Active = active
			if err := s.save(); err != nil {
				return err
			}
			s.logger.Info().Str("email", email).Bool("active", active).Msg("subscriber flag updated")
			return nil
		}
	}
	return fmt.Errorf("subscriber %q not found", email)
}

// ListActive returns the active subscribers.
func (s *Store) ListActive() []Subscriber {
	var active []Subscriber
	for _, sub := range s.subs {
		if sub.Active {
			active = append(active, sub)
		}
	}
	return active
}

// All returns every subscriber.
func (s *Store) All() []Subscriber {
	out := make([]Subscriber, len(s.subs))
	copy(out, s.subs)
	return out
}
