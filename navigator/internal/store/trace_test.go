package store

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/patootie/dbopen"
)

func TestTraceDriver_LogsStatements(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s, err := Open(filepath.Join(t.TempDir(), "traced.db"), dbopen.WithDriver(TraceDriver))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.Insert(ctx, "http://example.com/a", rules(`{"k":1}`))
	require.NoError(t, err)
	p, err := s.Current(ctx, "http://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Sequence)

	logs := buf.String()
	assert.Contains(t, logs, `"component":"sql"`)
	assert.Contains(t, logs, "INSERT INTO parsers")
	assert.Contains(t, logs, "ORDER BY sequence_number DESC LIMIT 1")
}

func TestTraceDriver_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s, err := Open(filepath.Join(t.TempDir(), "traced.db"), dbopen.WithDriver(TraceDriver))
	require.NoError(t, err)
	defer s.Close()

	const dup = `INSERT INTO parsers (url, sequence_number, rules, created_at) VALUES ('u', 1, '[]', 0)`
	_, err = s.DB.Exec(dup)
	require.NoError(t, err)
	_, err = s.DB.Exec(dup)
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
