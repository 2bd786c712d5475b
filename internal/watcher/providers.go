// file: internal/watcher/providers.go
// version: 1.0.0
// guid: 29639c0b-9451-4565-b47a-202c97efb740

package watcher

import (
	"log"
	"time"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
)

// Registry is the provider registry surface a reload needs.
type Registry interface {
	config.ProviderRegistry
	Invalidate()
}

// ReloadProviders imports the seed file at path into reg and drops the
// registry snapshot so the next request sees the change.
func ReloadProviders(reg Registry, path string) (*config.ImportResult, error) {
	defs, err := config.LoadProviderFile(path)
	if err != nil {
		return nil, err
	}
	res, err := config.ImportProviders(reg, defs)
	if err != nil {
		return nil, err
	}
	reg.Invalidate()
	return res, nil
}

// WatchProviderFile re-imports path into reg whenever it changes. A file
// that fails to parse is logged and the current providers are kept.
func WatchProviderFile(reg Registry, path string, debounce time.Duration) (*Watcher, error) {
	w := New(func(p string) {
		if _, err := ReloadProviders(reg, p); err != nil {
			log.Printf("[ERROR] watcher: failed to reload providers from %s: %v", p, err)
		}
	}, debounce)
	if err := w.Start(path); err != nil {
		return nil, err
	}
	return w, nil
}
