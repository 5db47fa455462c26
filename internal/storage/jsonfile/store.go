// Package jsonfile keeps the video table as a single JSON document on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/romariotrain/visiguard/internal/video/models"
)

const lockRetry = 10 * time.Millisecond

type Store struct {
	path string
	lock *flock.Flock
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonfile: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create dir: %w", err)
	}
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (s *Store) Path() string { return s.path }

// LoadAll returns an empty table when the document does not exist yet.
func (s *Store) LoadAll(ctx context.Context) ([]models.Video, error) {
	locked, err := s.lock.TryRLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("jsonfile: lock %s not acquired", s.lock.Path())
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read: %w", err)
	}

	var videos []models.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("jsonfile: decode %s: %w", s.path, err)
	}
	return videos, nil
}

// SaveAll writes to a temp file and renames it over the document so a
// crash never leaves a half-written table behind.
func (s *Store) SaveAll(ctx context.Context, videos []models.Video) error {
	if videos == nil {
		videos = []models.Video{}
	}
	data, err := json.Marshal(videos)
	if err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("jsonfile: lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("jsonfile: lock %s not acquired", s.lock.Path())
	}
	defer s.lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("jsonfile: replace: %w", err)
	}
	return nil
}
