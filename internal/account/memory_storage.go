package account

import (
	"context"
	"sync"
)

// MemoryStorage keeps widgets in process memory. Widgets are values with
// immutable draft and validity records, so no deep copy is needed.
type MemoryStorage struct {
	mu      sync.RWMutex
	widgets map[string]Widget
}

// NewMemoryStorage returns an empty in-process Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{widgets: make(map[string]Widget)}
}

func (s *MemoryStorage) GetWidget(_ context.Context, id string) (Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.widgets[id]
	if !ok {
		return Widget{}, ErrWidgetNotFound
	}
	return w, nil
}

func (s *MemoryStorage) SaveWidget(_ context.Context, w Widget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.widgets[w.ID] = w
	return nil
}

func (s *MemoryStorage) DeleteWidget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.widgets, id)
	return nil
}

func (s *MemoryStorage) ListWidgets(_ context.Context) ([]Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Widget, 0, len(s.widgets))
	for _, w := range s.widgets {
		result = append(result, w)
	}
	return result, nil
}
