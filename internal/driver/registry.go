package driver

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register makes a driver available under name.
// It panics if name is empty, opener is nil, or name is already registered.
func Register(name string, opener Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if name == "" {
		panic("driver: Register name is empty")
	}
	if opener == nil {
		panic("driver: Register opener is nil")
	}
	if _, dup := registry[name]; dup {
		panic("driver: Register called twice for " + name)
	}
	registry[name] = opener
}

// Lookup returns the opener registered under name.
func Lookup(name string) (Opener, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	opener, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDriver, name, registeredLocked())
	}
	return opener, nil
}

// Registered returns the sorted names of all registered drivers.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registeredLocked()
}

func registeredLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
