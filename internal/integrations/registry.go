// internal/integrations/registry.go
package integrations

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[strings.ToLower(name)] = f
}

func Get(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// Names – zarejestrowani dostawcy, posortowani
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New buduje fetcher po nazwie z surowej konfiguracji (sekcja integrations w configu).
func New(name string, log zerolog.Logger, raw json.RawMessage) (Fetcher, error) {
	f, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown supplier %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return f(log.With().Str("supplier", name).Logger(), raw)
}
