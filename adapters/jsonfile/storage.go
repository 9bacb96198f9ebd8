package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hanzikit/core"
)

const (
	filePrefix = "user_achievements_"
	fileSuffix = ".json"
	fileMode   = 0o644
)

// Store keeps one JSON document per user in a directory.
// Suitable for a single bot process and small deployments.
type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Path is the file holding user's record.
func (s *Store) Path(user core.UserID) string {
	return filepath.Join(s.dir, filePrefix+user.String()+fileSuffix)
}

func (s *Store) Load(_ context.Context, user core.UserID) (core.Record, bool, error) {
	b, err := os.ReadFile(s.Path(user))
	if errors.Is(err, fs.ErrNotExist) {
		return core.Record{}, false, nil
	}
	if err != nil {
		return core.Record{}, false, err
	}
	var rec core.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return core.Record{}, false, fmt.Errorf("%s: %w: %v", filepath.Base(s.Path(user)), core.ErrMalformedRecord, err)
	}
	rec.UserID = user
	return rec, true, nil
}

// Save writes to a synced temp file in the same directory and renames it over
// the target, so readers see either the old or the new document. An existing
// file keeps its permissions; new files get 0644.
func (s *Store) Save(_ context.Context, rec core.Record) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	path := s.Path(rec.UserID)
	mode := fs.FileMode(fileMode)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return err
	}
	if err := writeSynced(tmp, b, mode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func writeSynced(f *os.File, b []byte, mode fs.FileMode) error {
	if _, err := f.Write(b); err != nil {
		return err
	}
	if err := f.Chmod(mode); err != nil {
		return err
	}
	return f.Sync()
}

// Users lists the users with a record file, ascending.
func (s *Store) Users(_ context.Context) ([]core.UserID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []core.UserID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id, err := core.ParseUserID(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
