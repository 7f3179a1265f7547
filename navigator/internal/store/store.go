// Package store is the SQLite persistence layer for learned parsers: every
// generation of extraction rules produced for a source URL, ordered by a
// per-URL sequence number.
package store

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/patootie/dbopen"
)

// ErrCorrupt is returned when a stored rules blob cannot be decoded. It is
// never reported as a cache miss.
var ErrCorrupt = errors.New("store: corrupt parser rules")

// Store is the parser cache database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the parser cache at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
