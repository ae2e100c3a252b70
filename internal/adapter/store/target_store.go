package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/core/port"

	"github.com/spf13/afero"
)

// FileTargetStore keeps the DailyTarget as a JSON file shared with the
// planner. Saves replace the file through a temp file and a rename.
type FileTargetStore struct {
	fs   afero.Fs
	path string
}

func NewFileTargetStore(fs afero.Fs, path string) *FileTargetStore {
	return &FileTargetStore{fs: fs, path: path}
}

func (s *FileTargetStore) Load() (*domain.DailyTarget, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTargetUnreadable, err)
	}
	var target domain.DailyTarget
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTargetUnreadable, s.path, err)
	}
	// a target above 100 is never reached, it keeps the cheap window charging
	if target.TargetSoC < 0 || target.DailyChargeCurrent < 0 {
		return nil, fmt.Errorf("%w: out of range values %+v", domain.ErrTargetUnreadable, target)
	}
	return &target, nil
}

func (s *FileTargetStore) Save(target domain.DailyTarget) error {
	data, err := json.Marshal(target)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp target file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("write temp target file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return err
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("replace target file: %w", err)
	}
	return nil
}

// ensure interface compliance
var _ port.DailyTargetStore = (*FileTargetStore)(nil)
