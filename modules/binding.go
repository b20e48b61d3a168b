package modules

import (
	"container/list"
	"fmt"

	"github.com/iDang3r/tarantool/errext"
	"github.com/iDang3r/tarantool/modules/dynlib"
)

// Binding is one logical-name-to-entry-point mapping handed out to the rest
// of the server. A binding starts unresolved. Legacy bindings resolve lazily
// through the legacy cache on first use and may be retargeted by a reload;
// modern bindings resolve against a module the caller obtained from
// LoadModern and stay on it for life.
type Binding struct {
	registry *Registry
	name     string

	module *Module
	symbol dynlib.Symbol
	elem   *list.Element // membership in module.bindings while resolved

	preset *Module // modern generation only
}

// NewBinding creates an unresolved legacy binding. Nothing is loaded until
// the binding is first bound or called.
func (r *Registry) NewBinding(name string) *Binding {
	return &Binding{registry: r, name: name}
}

// NewModernBinding creates a binding that resolves against m. The caller's
// reference on m must outlive the call to Bind; the binding takes its own.
func (r *Registry) NewModernBinding(name string, m *Module) *Binding {
	return &Binding{registry: r, name: name, preset: m}
}

// Name returns the binding's dotted logical name.
func (b *Binding) Name() string {
	return b.name
}

// Resolved reports whether the binding carries an entry point.
func (b *Binding) Resolved() bool {
	return b.symbol != nil
}

// Module returns the module currently providing the entry point, nil while
// unresolved.
func (b *Binding) Module() *Module {
	return b.module
}

// Addr returns the resolved entry point's address, zero while unresolved.
func (b *Binding) Addr() uintptr {
	if b.symbol == nil {
		return 0
	}
	return b.symbol.Addr()
}

// Bind resolves the binding's entry point. Idempotent once resolved.
func (b *Binding) Bind() error {
	if b.symbol != nil {
		return nil
	}
	pkg, symbol, err := splitName(b.name)
	if err != nil {
		return err
	}

	var m *Module
	if b.preset != nil {
		m = b.preset
		m.ref()
	} else if m, err = b.registry.acquireLegacy(pkg); err != nil {
		return err
	}

	sym, err := m.handle.Lookup(symbol)
	if err != nil {
		b.registry.unref(m)
		return errext.WithKind(
			fmt.Errorf("no symbol %q in module %q: %w", symbol, pkg, err), errext.SymbolNotFound)
	}

	// The reference taken above becomes the binding's.
	b.attach(m, sym)
	return nil
}

// Unbind detaches the binding from its module and drops the binding's
// reference. Unlinking comes first: releasing the reference may destroy the
// module. Unbinding an unresolved binding is a no-op.
func (b *Binding) Unbind() {
	if b.symbol == nil {
		return
	}
	m := b.module
	m.bindings.Remove(b.elem)
	b.elem = nil
	b.module = nil
	b.symbol = nil
	b.registry.unref(m)
}

func (b *Binding) attach(m *Module, sym dynlib.Symbol) {
	b.module = m
	b.symbol = sym
	b.elem = m.bindings.PushBack(b)
}

// acquireLegacy returns the legacy module for pkg with one extra reference
// owned by the caller, loading and caching it on a miss. Entries in the
// legacy cache are never validated against the disk; staleness is the
// documented behavior of this generation.
func (r *Registry) acquireLegacy(pkg string) (*Module, error) {
	if m := r.legacy.find(pkg); m != nil {
		m.ref()
		return m, nil
	}

	path, err := r.resolver.ResolvePath(pkg)
	if err != nil {
		return nil, errext.WithKind(
			fmt.Errorf("no loadable module for package %q: %w", pkg, err), errext.NotFound)
	}
	m, err := r.load(pkg, path)
	if err != nil {
		return nil, err
	}
	// The loader's reference stays with us; the cache takes its own.
	r.legacy.insert(m)
	return m, nil
}
