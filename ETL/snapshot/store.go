package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
)

// Layer - слой хранилища, для которого ведутся снимки
type Layer string

const (
	LayerSilver  Layer = "silver"
	LayerGold    Layer = "gold"
	LayerQuality Layer = "quality"
)

// ErrNotFound - для слоя еще нет ни одного снимка
var ErrNotFound = errors.New("снимок не найден")

// Manifest описывает одну версию снимка
type Manifest struct {
	Version    string         `json:"version"`
	Layer      Layer          `json:"layer"`
	RunID      string         `json:"run_id"`
	CreatedAt  time.Time      `json:"created_at"`
	RowCounts  map[string]int `json:"row_counts"`
	Violations int            `json:"violations"`
}

// Store хранит неизменяемые версии слоев. Каждая запись создает новую версию
// и переключает на нее указатель последней версии.
type Store interface {
	Save(ctx context.Context, m Manifest, payload interface{}) (Manifest, error)
	Latest(ctx context.Context, layer Layer, payload interface{}) (*Manifest, error)
	LatestManifest(ctx context.Context, layer Layer) (*Manifest, error)
}

// envelope - формат файла снимка
type envelope struct {
	Manifest Manifest        `json:"manifest"`
	Data     json.RawMessage `json:"data"`
}

// VersionFor формирует имя версии: время создания и идентификатор запуска
func VersionFor(createdAt time.Time, runID string) string {
	return fmt.Sprintf("%s-%s", createdAt.UTC().Format("20060102T150405.000000000Z"), runID)
}

// encode сериализует снимок в JSON и сжимает snappy
func encode(m Manifest, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации снимка %s: %w", m.Layer, err)
	}
	raw, err := json.Marshal(envelope{Manifest: m, Data: data})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации манифеста %s: %w", m.Layer, err)
	}
	return snappy.Encode(nil, raw), nil
}

// decode распаковывает снимок. payload может быть nil, если нужен только манифест
func decode(b []byte, payload interface{}) (*Manifest, error) {
	env, err := unpack(b)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return nil, fmt.Errorf("ошибка чтения данных снимка %s: %w", env.Manifest.Layer, err)
		}
	}
	return &env.Manifest, nil
}

func unpack(b []byte) (*envelope, error) {
	raw, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки снимка: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка: %w", err)
	}
	return &env, nil
}

func prepare(m Manifest) (Manifest, error) {
	if m.Layer == "" {
		return m, errors.New("не указан слой снимка")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Version == "" {
		m.Version = VersionFor(m.CreatedAt, m.RunID)
	}
	return m, nil
}
