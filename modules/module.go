package modules

import (
	"container/list"
	"fmt"

	"github.com/iDang3r/tarantool/modules/dynlib"
)

// Module is one loaded shared-library image. It is reference-counted: one
// reference per cache it sits in, one per resolved binding attached to it,
// plus a transient reference for every call currently executing inside it.
// When the count drops to zero the image is unmapped.
type Module struct {
	pkg      string
	handle   dynlib.Handle
	identity FileIdentity

	refs     int
	bindings *list.List   // of *Binding
	cache    *moduleCache // nil while orphan
}

// Package returns the logical name the module was loaded under.
func (m *Module) Package() string {
	return m.pkg
}

// Identity returns the on-disk identity captured at load time.
func (m *Module) Identity() FileIdentity {
	return m.identity
}

// Refs returns the current reference count.
func (m *Module) Refs() int {
	return m.refs
}

// NumBindings returns how many resolved bindings are attached.
func (m *Module) NumBindings() int {
	return m.bindings.Len()
}

func (m *Module) ref() {
	if m.refs < 0 {
		panic(fmt.Sprintf("module cache: negative refcount on module %q", m.pkg))
	}
	m.refs++
}

// orphan detaches the module from its cache bookkeeping without touching the
// cache map. Used when the map slot has already been taken over by a
// successor; the module stays alive until its last reference is released.
func (m *Module) orphan() {
	m.cache = nil
}

// unref releases one reference and destroys the module when the last one is
// gone. A module still sitting in a cache at that point is evicted first.
func (r *Registry) unref(m *Module) {
	if m.refs <= 0 {
		panic(fmt.Sprintf("module cache: refcount underflow on module %q", m.pkg))
	}
	m.refs--
	if m.refs > 0 {
		return
	}
	if m.cache != nil {
		m.cache.remove(m)
	}
	if err := m.handle.Close(); err != nil {
		r.logger.WithError(err).WithField("package", m.pkg).Warn("failed to close native module")
	}
}
