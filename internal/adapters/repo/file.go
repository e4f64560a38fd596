package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"boss-timer-bot/internal/domain"
)

// FileStore хранит документ каждого скоупа в отдельном JSON-файле.
// Запись идёт во временный файл с последующим rename, поэтому читатель
// всегда видит либо старый, либо новый документ целиком.
type FileStore struct {
	dir string
	loc *time.Location
}

var _ domain.TimerStore = (*FileStore)(nil)

// NewFileStore создаёт каталог данных при необходимости.
func NewFileStore(dir string, loc *time.Location) (*FileStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir, loc: loc}, nil
}

func (s *FileStore) path(scope domain.Scope) string {
	name := "boss_data_" + strconv.FormatInt(scope.GuildID, 10)
	if scope.ChannelID != 0 {
		name += "_" + strconv.FormatInt(scope.ChannelID, 10)
	}
	return filepath.Join(s.dir, name+".json")
}

// Load реализует domain.TimerStore.
func (s *FileStore) Load(_ context.Context, scope domain.Scope) (domain.TimerMap, error) {
	data, err := os.ReadFile(s.path(scope))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.TimerMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", scope, err)
	}
	return DecodeTimers(data, s.loc)
}

// Save реализует domain.TimerStore.
func (s *FileStore) Save(_ context.Context, scope domain.Scope, timers domain.TimerMap) error {
	data, err := EncodeTimers(timers)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".boss_data_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", scope, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", scope, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", scope, err)
	}
	if err := os.Rename(tmpName, s.path(scope)); err != nil {
		return fmt.Errorf("replace %s: %w", scope, err)
	}
	return nil
}

// Clear реализует domain.TimerStore.
func (s *FileStore) Clear(_ context.Context, scope domain.Scope) error {
	err := os.Remove(s.path(scope))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", scope, err)
	}
	return nil
}
