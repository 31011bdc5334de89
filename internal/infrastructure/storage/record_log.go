package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

const backupLayout = "20060102_150405"

// RecordLog is the JSON Lines dataset read by the static front end.
type RecordLog struct {
	path      string
	backupDir string
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.RecordLog = (*RecordLog)(nil)

// NewRecordLog binds the log to path. Backups go next to it unless backupDir is set.
func NewRecordLog(path, backupDir string, logger *slog.Logger) *RecordLog {
	if backupDir == "" {
		backupDir = filepath.Dir(path)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RecordLog{path: path, backupDir: backupDir, logger: logger, now: time.Now}
}

// Path returns the backing file.
func (l *RecordLog) Path() string {
	return l.path
}

// Append writes one record as a single line and syncs it to disk.
func (l *RecordLog) Append(ctx context.Context, record domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return domain.Fail(domain.ErrStorage, "encode record", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return domain.Fail(domain.ErrStorage, "create data dir", err)
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return domain.Fail(domain.ErrStorage, "open record log", err)
	}

	line := buf.Bytes()
	// A crash can leave a partial last line; start a fresh one so it stays isolated.
	if needsNewline(f) {
		line = append([]byte{'\n'}, line...)
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return domain.Fail(domain.ErrStorage, "append record "+record.ID, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return domain.Fail(domain.ErrStorage, "sync record log", err)
	}
	if err := f.Close(); err != nil {
		return domain.Fail(domain.ErrStorage, "close record log", err)
	}
	return nil
}

func needsNewline(f *os.File) bool {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false
	}
	return last[0] != '\n'
}

// LoadAll returns records in file order. Lines that do not parse are skipped.
// limit <= 0 means no cap.
func (l *RecordLog) LoadAll(ctx context.Context, limit int) ([]domain.Record, error) {
	var records []domain.Record
	err := l.scan(ctx, func(r domain.Record) bool {
		records = append(records, r)
		return limit <= 0 || len(records) < limit
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Find returns the first record with the given id.
func (l *RecordLog) Find(ctx context.Context, id string) (domain.Record, bool, error) {
	var (
		found domain.Record
		ok    bool
	)
	err := l.scan(ctx, func(r domain.Record) bool {
		if r.ID == id {
			found, ok = r, true
			return false
		}
		return true
	})
	return found, ok, err
}

// IDs returns the ids present in the log.
func (l *RecordLog) IDs(ctx context.Context) (domain.IDSet, error) {
	ids := domain.NewIDSet()
	err := l.scan(ctx, func(r domain.Record) bool {
		ids.Add(r.ID)
		return true
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Backup copies the log to backup_YYYYMMDD_HHMMSS.jsonl and returns the new path.
func (l *RecordLog) Backup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return "", domain.Fail(domain.ErrStorage, "read record log", err)
	}

	target := filepath.Join(l.backupDir, fmt.Sprintf("backup_%s.jsonl", l.now().Format(backupLayout)))
	if err := writeFileAtomic(target, raw, 0o644); err != nil {
		return "", domain.Fail(domain.ErrStorage, "write backup", err)
	}
	l.logger.Info("record log backed up", "path", target, "bytes", len(raw))
	return target, nil
}

func (l *RecordLog) scan(ctx context.Context, visit func(domain.Record) bool) error {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return domain.Fail(domain.ErrStorage, "open record log", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for lineNum := 1; ; lineNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var r domain.Record
			if err := json.Unmarshal(line, &r); err != nil {
				l.logger.Warn("skip malformed record line", "line", lineNum, "error", err)
			} else if !visit(r) {
				return nil
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return domain.Fail(domain.ErrStorage, "read record log", readErr)
		}
	}
}
