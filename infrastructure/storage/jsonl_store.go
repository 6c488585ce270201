// Package storage provides record persistence for annotation runs.
// Input and output files are JSON Lines, one record object per line;
// checkpoint snapshots are a single JSON array.
package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// maxLineBytes bounds a single JSONL line. Records carry truncated
// reasons and raw responses, so lines far beyond this indicate a
// corrupt file rather than real data.
const maxLineBytes = 1 << 20

// JSONLStore reads and writes record files in JSON Lines format.
// Reads come from the input path and writes go to the output path, so
// an annotation run never clobbers its source file. Writes go through
// a temp file and rename so a crash mid-write never leaves a
// half-written output behind. Implements ports.RecordStore.
type JSONLStore struct {
	inputPath  string
	outputPath string
}

var _ ports.RecordStore = (*JSONLStore)(nil)

// NewJSONLStore creates a store that reads and writes the same file.
func NewJSONLStore(path string) (*JSONLStore, error) {
	return NewJSONLStorePair(path, path)
}

// NewJSONLStorePair creates a store that reads from inputPath and
// writes results to outputPath.
func NewJSONLStorePair(inputPath, outputPath string) (*JSONLStore, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	if strings.TrimSpace(outputPath) == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}
	return &JSONLStore{inputPath: inputPath, outputPath: outputPath}, nil
}

// InputPath returns the file the store reads.
func (s *JSONLStore) InputPath() string { return s.inputPath }

// OutputPath returns the file the store writes.
func (s *JSONLStore) OutputPath() string { return s.outputPath }

// CheckpointPath returns the output sibling used for mid-run
// snapshots.
func (s *JSONLStore) CheckpointPath() string {
	ext := filepath.Ext(s.outputPath)
	return strings.TrimSuffix(s.outputPath, ext) + ".checkpoint" + ext
}

// ReadAll loads every well-formed record in file order. Lines that are
// blank are ignored; lines that fail to decode are skipped and counted
// so callers can surface data quality without aborting a run.
func (s *JSONLStore) ReadAll(ctx context.Context) ([]domain.Record, int, error) {
	f, err := os.Open(s.inputPath)
	if err != nil {
		return nil, 0, ports.NewStoreError(s.inputPath, "read", err)
	}
	defer f.Close()

	var (
		records []domain.Record
		dropped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, dropped, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record domain.Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			dropped++
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, dropped, ports.NewStoreError(s.inputPath, "read", err)
	}
	return records, dropped, nil
}

// WriteAll replaces the store file with the given records atomically,
// one JSON object per line.
func (s *JSONLStore) WriteAll(ctx context.Context, records []domain.Record) error {
	return writeAtomic(ctx, s.outputPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for i := range records {
			if err := enc.Encode(&records[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCheckpoint snapshots the given records to the checkpoint file
// as a single JSON array. The main output is untouched; a later
// WriteAll supersedes the checkpoint.
func (s *JSONLStore) WriteCheckpoint(ctx context.Context, records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	return writeAtomic(ctx, s.CheckpointPath(), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(records)
	})
}

func writeAtomic(ctx context.Context, path string, encode func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ports.NewStoreError(path, "write", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return ports.NewStoreError(path, "write", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	if err := encode(w); err != nil {
		tmp.Close()
		return ports.NewStoreError(path, "write", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return ports.NewStoreError(path, "write", err)
	}
	if err := tmp.Close(); err != nil {
		return ports.NewStoreError(path, "write", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return ports.NewStoreError(path, "write", err)
	}
	return nil
}
