package snapshot

import (
	"context"
	"sync"
)

// MemoryStore - хранилище снимков в памяти. Данные сжимаются так же, как в FileStore
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[Layer][][]byte
}

// NewMemoryStore создает пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[Layer][][]byte)}
}

// Save добавляет новую версию слоя
func (s *MemoryStore) Save(_ context.Context, m Manifest, payload interface{}) (Manifest, error) {
	m, err := prepare(m)
	if err != nil {
		return m, err
	}
	data, err := encode(m, payload)
	if err != nil {
		return m, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[m.Layer] = append(s.versions[m.Layer], data)
	return m, nil
}

// Latest читает последнюю версию слоя
func (s *MemoryStore) Latest(_ context.Context, layer Layer, payload interface{}) (*Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[layer]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	return decode(versions[len(versions)-1], payload)
}

// LatestManifest возвращает манифест последней версии слоя
func (s *MemoryStore) LatestManifest(ctx context.Context, layer Layer) (*Manifest, error) {
	return s.Latest(ctx, layer, nil)
}

// Data возвращает JSON данных версии слоя без манифеста (0 - первая версия)
func (s *MemoryStore) Data(layer Layer, index int) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[layer]
	if index < 0 || index >= len(versions) {
		return nil, false
	}
	env, err := unpack(versions[index])
	if err != nil {
		return nil, false
	}
	return env.Data, true
}

// Len возвращает количество версий слоя
func (s *MemoryStore) Len(layer Layer) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.versions[layer])
}
