package modules

import "fmt"

// moduleCache is one generation's package-to-module map. The two generations
// share the container and differ only in lookup policy: the legacy cache
// tolerates stale entries, the modern one validates identity on every load.
type moduleCache struct {
	generation string
	byPkg      map[string]*Module
}

func newModuleCache(generation string) *moduleCache {
	return &moduleCache{
		generation: generation,
		byPkg:      make(map[string]*Module),
	}
}

func (c *moduleCache) find(pkg string) *Module {
	return c.byPkg[pkg]
}

// insert adds a module under its package name and takes the cache's own
// reference on it. The caller guarantees the key is free.
func (c *moduleCache) insert(m *Module) {
	c.byPkg[m.pkg] = m
	m.cache = c
	m.ref()
}

// update replaces the entry for m's package in place. The previous occupant
// keeps its reference and its stale cache pointer; the caller orphans and
// releases it. A missing key means the cache was mutated behind our back and
// nothing can be trusted anymore.
func (c *moduleCache) update(m *Module) {
	if _, ok := c.byPkg[m.pkg]; !ok {
		panic(fmt.Sprintf("module cache: update of package %q missed the %s cache it was just found in",
			m.pkg, c.generation))
	}
	c.byPkg[m.pkg] = m
	m.cache = c
	m.ref()
}

// remove drops the map entry without releasing the cache's reference; the
// caller pairs it with unref.
func (c *moduleCache) remove(m *Module) {
	delete(c.byPkg, m.pkg)
	m.cache = nil
}

func (c *moduleCache) len() int {
	return len(c.byPkg)
}
