package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	latestFile = "LATEST"
	fileSuffix = ".json.sz"
)

// FileStore хранит снимки в каталоге: <dir>/<layer>/<version>.json.sz и
// указатель <dir>/<layer>/LATEST с именем последней версии
type FileStore struct {
	dir string
}

// NewFileStore создает хранилище снимков в каталоге dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save записывает новую версию и переключает на нее указатель LATEST
func (s *FileStore) Save(ctx context.Context, m Manifest, payload interface{}) (Manifest, error) {
	m, err := prepare(m)
	if err != nil {
		return m, err
	}
	if err := ctx.Err(); err != nil {
		return m, err
	}

	data, err := encode(m, payload)
	if err != nil {
		return m, err
	}

	layerDir := filepath.Join(s.dir, string(m.Layer))
	if err := os.MkdirAll(layerDir, 0o755); err != nil {
		return m, fmt.Errorf("ошибка создания каталога снимков: %w", err)
	}

	if err := writeAtomic(filepath.Join(layerDir, m.Version+fileSuffix), data); err != nil {
		return m, err
	}
	if err := writeAtomic(filepath.Join(layerDir, latestFile), []byte(m.Version+"\n")); err != nil {
		return m, err
	}
	return m, nil
}

// Latest читает последнюю версию слоя в payload
func (s *FileStore) Latest(ctx context.Context, layer Layer, payload interface{}) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layerDir := filepath.Join(s.dir, string(layer))
	pointer, err := os.ReadFile(filepath.Join(layerDir, latestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения указателя снимка %s: %w", layer, err)
	}

	version := strings.TrimSpace(string(pointer))
	data, err := os.ReadFile(filepath.Join(layerDir, version+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка %s/%s: %w", layer, version, err)
	}
	return decode(data, payload)
}

// LatestManifest возвращает манифест последней версии слоя
func (s *FileStore) LatestManifest(ctx context.Context, layer Layer) (*Manifest, error) {
	return s.Latest(ctx, layer, nil)
}

// writeAtomic пишет файл через временный файл и переименование
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи снимка: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка записи снимка: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("ошибка сохранения снимка: %w", err)
	}
	return nil
}
