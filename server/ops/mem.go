package ops

import (
	"context"
	"sort"
	"sync"

	"github.com/luno/qkdmap/api"
)

type MemPrefs struct {
	defaults api.Preferences

	mu    sync.RWMutex
	prefs map[string]api.Preferences
}

// NewMemPrefs returns a store handing out defaults to viewers that never
// changed a control.
func NewMemPrefs(defaults api.Preferences) *MemPrefs {
	return &MemPrefs{defaults: defaults, prefs: make(map[string]api.Preferences)}
}

func (m *MemPrefs) GetPrefs(_ context.Context, viewer string) (api.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[viewer]
	if !ok {
		return m.defaults, nil
	}
	return p, nil
}

func (m *MemPrefs) SetPrefs(_ context.Context, viewer string, p api.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[viewer] = p
	return nil
}

func (m *MemPrefs) Viewers(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ret := make([]string, 0, len(m.prefs))
	for v := range m.prefs {
		ret = append(ret, v)
	}
	sort.Strings(ret)
	return ret, nil
}

var _ PrefsStore = (*MemPrefs)(nil)
