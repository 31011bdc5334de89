package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

// ProcessedIDs keeps the deduplication set in a flat file, one id per line.
type ProcessedIDs struct {
	path string
}

var _ ports.ProcessedStore = (*ProcessedIDs)(nil)

// NewProcessedIDs binds the store to a file path.
func NewProcessedIDs(path string) *ProcessedIDs {
	return &ProcessedIDs{path: path}
}

// Path returns the backing file.
func (s *ProcessedIDs) Path() string {
	return s.path
}

// Load reads the set. A missing file is an empty set.
func (s *ProcessedIDs) Load(ctx context.Context) (domain.IDSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewIDSet(), nil
	}
	if err != nil {
		return nil, domain.Fail(domain.ErrStorage, "load processed ids", err)
	}

	ids := domain.NewIDSet()
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		ids.Add(strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, domain.Fail(domain.ErrStorage, "scan processed ids", err)
	}
	return ids, nil
}

// Save rewrites the whole file atomically with the sorted ids.
func (s *ProcessedIDs) Save(ctx context.Context, ids domain.IDSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	for _, id := range ids.Sorted() {
		b.WriteString(id)
		b.WriteByte('\n')
	}

	if err := writeFileAtomic(s.path, []byte(b.String()), 0o644); err != nil {
		return domain.Fail(domain.ErrStorage, "save processed ids", fmt.Errorf("%s: %w", s.path, err))
	}
	return nil
}
