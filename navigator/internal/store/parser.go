package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/patootie/dbopen"
)

// Parser is one generation of extraction rules for one source URL. Parsers
// are immutable once inserted.
type Parser struct {
	ID        int64             `json:"id"`
	URL       string            `json:"url"`
	Sequence  int               `json:"sequence_number"`
	Rules     []json.RawMessage `json:"rules"`
	CreatedAt int64             `json:"created_at"`
}

const parserColumns = `id, url, sequence_number, rules, created_at`

// CurrentSequence returns the highest sequence number stored for url.
// ok is false when url has never been cached.
func (s *Store) CurrentSequence(ctx context.Context, url string) (seq int, ok bool, err error) {
	var max sql.NullInt64
	err = s.DB.QueryRowContext(ctx,
		`SELECT MAX(sequence_number) FROM parsers WHERE url = ?`, url).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("store: current sequence: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

// Generations returns every generation stored for url, oldest first.
// It returns nil when url has never been cached.
func (s *Store) Generations(ctx context.Context, url string) ([]*Parser, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+parserColumns+`
		FROM parsers WHERE url = ?
		ORDER BY sequence_number ASC`, url)
	if err != nil {
		return nil, fmt.Errorf("store: generations: %w", err)
	}
	defer rows.Close()

	var parsers []*Parser
	for rows.Next() {
		p, err := scanParser(rows)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: generations: %w", err)
	}
	return parsers, nil
}

// Current returns the generation with the highest sequence number for url,
// or nil when url has never been cached.
func (s *Store) Current(ctx context.Context, url string) (*Parser, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+parserColumns+`
		FROM parsers WHERE url = ?
		ORDER BY sequence_number DESC
		LIMIT 1`, url)
	p, err := scanParser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Insert stores rules as the next generation for url and returns it.
//
// The next sequence number is computed and inserted by a single statement,
// so two writers sharing the database can never claim the same number.
func (s *Store) Insert(ctx context.Context, url string, rules []json.RawMessage) (*Parser, error) {
	if rules == nil {
		rules = []json.RawMessage{}
	}
	blob, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("store: encode rules: %w", err)
	}

	p := &Parser{
		URL:       url,
		Rules:     rules,
		CreatedAt: time.Now().UnixMilli(),
	}
	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO parsers (url, sequence_number, rules, created_at)
			SELECT ?, COALESCE(MAX(sequence_number), 0) + 1, ?, ?
			FROM parsers WHERE url = ?
			RETURNING id, sequence_number`,
			url, string(blob), p.CreatedAt, url,
		).Scan(&p.ID, &p.Sequence)
	})
	if err != nil {
		return nil, fmt.Errorf("store: insert parser: %w", err)
	}
	return p, nil
}

// Delete removes the parser with the given id. Deleting a missing id is not
// an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM parsers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete parser %d: %w", id, err)
	}
	return nil
}

// Pop deletes the current generation for url and returns it. The previous
// generation, if any, becomes current. Pop returns nil when url has no
// cached generation. A corrupt generation is still removed; its Rules are
// nil.
func (s *Store) Pop(ctx context.Context, url string) (*Parser, error) {
	var popped *Parser
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+parserColumns+`
			FROM parsers WHERE url = ?
			ORDER BY sequence_number DESC
			LIMIT 1`, url)
		p, err := scanParser(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil && !errors.Is(err, ErrCorrupt) {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM parsers WHERE id = ?`, p.ID); err != nil {
			return fmt.Errorf("store: pop parser %d: %w", p.ID, err)
		}
		popped = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return popped, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanParser returns ErrCorrupt together with the parser (Rules nil) when
// the rules blob does not decode.
func scanParser(sc scanner) (*Parser, error) {
	p := &Parser{}
	var blob string
	if err := sc.Scan(&p.ID, &p.URL, &p.Sequence, &blob, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan parser: %w", err)
	}
	if err := json.Unmarshal([]byte(blob), &p.Rules); err != nil {
		p.Rules = nil
		return p, fmt.Errorf("%w: parser %d (%s #%d): %v", ErrCorrupt, p.ID, p.URL, p.Sequence, err)
	}
	return p, nil
}
