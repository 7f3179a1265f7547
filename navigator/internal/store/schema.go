package store

// Schema is the parser cache DDL. It is safe to apply on every open.
//
// The (url, sequence_number) unique index also serves the current-generation
// lookup, which reads the highest sequence number for one url.
const Schema = `
CREATE TABLE IF NOT EXISTS parsers (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    url             TEXT    NOT NULL,
    sequence_number INTEGER NOT NULL CHECK (sequence_number > 0),
    rules           TEXT    NOT NULL DEFAULT '[]',
    created_at      INTEGER NOT NULL,
    UNIQUE (url, sequence_number)
);
`
