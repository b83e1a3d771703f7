package sqlstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Export writes every row of table to <dir>/<table>.jsonl, one JSON object
// per line in identity key order, and returns the number of rows written.
// Columns named in omit are left out of every line; with no omit the file
// is a raw backup of the stored rows. The file is replaced atomically.
func (b *Backend) Export(ctx context.Context, table, dir string, omit ...string) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	if err := checkColumns(omit); err != nil {
		return 0, err
	}

	var records []json.RawMessage
	for row, err := range b.Select(ctx, types.Query{Table: table}) {
		if err != nil {
			return 0, err
		}
		for _, col := range omit {
			delete(row, col)
		}
		rec, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("encoding %s row: %w", table, err)
		}
		records = append(records, rec)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating export dir: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, table+".jsonl"), records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
