package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

// AudioDir stores synthesized audio as <id><ext> under dir.
// Returned paths are relative to baseDir and use forward slashes so the site can link them.
type AudioDir struct {
	baseDir string
	dir     string
	ext     string
}

var _ ports.AudioStore = (*AudioDir)(nil)

// NewAudioDir builds the store. ext defaults to ".wav".
func NewAudioDir(baseDir, dir, ext string) *AudioDir {
	if ext == "" {
		ext = ".wav"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &AudioDir{baseDir: baseDir, dir: dir, ext: ext}
}

// Save writes audio atomically and returns its web-relative path.
func (a *AudioDir) Save(ctx context.Context, id string, audio []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", domain.Fail(domain.ErrStorage, "save audio", errors.New("empty audio payload"))
	}

	name := FileNameForID(id)
	if name == "" {
		return "", domain.Fail(domain.ErrStorage, "save audio", fmt.Errorf("unusable id %q", id))
	}

	target := filepath.Join(a.dir, name+a.ext)
	if err := writeFileAtomic(target, audio, 0o644); err != nil {
		return "", domain.Fail(domain.ErrStorage, "save audio "+id, err)
	}

	rel, err := filepath.Rel(a.baseDir, target)
	if err != nil {
		rel = target
	}
	return filepath.ToSlash(rel), nil
}

// FileNameForID maps an arXiv id to a flat file name. Old-style ids contain slashes.
func FileNameForID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id)
	if id == "." || id == ".." {
		return ""
	}
	return id
}
