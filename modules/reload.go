package modules

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iDang3r/tarantool/errext"
	"github.com/iDang3r/tarantool/modules/dynlib"
)

// ReloadLegacy replaces the cached legacy module for pkg with a freshly
// loaded image and retargets every resolved binding onto it. The migration
// runs without suspension, so concurrent lookups observe either the old
// state or the new one, never a mix. If any binding's symbol is missing from
// the new image the whole migration is rolled back and the cache is left as
// it was.
func (r *Registry) ReloadLegacy(pkg string) error {
	old := r.legacy.find(pkg)
	if old == nil {
		return errext.WithKind(fmt.Errorf("module %q is not loaded", pkg), errext.NoSuchModule)
	}

	path, err := r.resolver.ResolvePath(pkg)
	if err != nil {
		return errext.WithKind(
			fmt.Errorf("no loadable module for package %q: %w", pkg, err), errext.NotFound)
	}
	fresh, err := r.load(pkg, path)
	if err != nil {
		return err
	}

	// Pin old across the migration; releasing binding references below must
	// not be able to destroy it halfway through.
	old.ref()

	var migrated []*Binding
	for e := old.bindings.Front(); e != nil; {
		next := e.Next() // retargeting unlinks e
		b := e.Value.(*Binding)

		_, symbol, err := splitName(b.name)
		var sym dynlib.Symbol
		if err == nil {
			sym, err = fresh.handle.Lookup(symbol)
		}
		if err != nil {
			r.rollback(old, fresh, migrated)
			return errext.WithKind(
				fmt.Errorf("no symbol %q in reloaded module %q: %w", symbol, pkg, err),
				errext.SymbolNotFound)
		}

		b.retarget(r, old, fresh, sym)
		migrated = append(migrated, b)
		e = next
	}

	r.legacy.update(fresh)
	old.orphan()
	r.unref(old) // the cache's reference
	r.unref(old) // the migration pin; old now survives only under in-flight calls
	r.unref(fresh) // the loader's reference; fresh is held by the cache and the bindings

	r.logger.WithFields(logrus.Fields{
		"package":  pkg,
		"bindings": len(migrated),
	}).Info("native module reloaded")
	return nil
}

// rollback undoes a partial migration, last migrated binding first. Every
// symbol is re-resolved against old, which exported it moments ago; a miss
// here means the mapped image changed under us and there is no state left to
// restore to.
func (r *Registry) rollback(old, fresh *Module, migrated []*Binding) {
	for i := len(migrated) - 1; i >= 0; i-- {
		b := migrated[i]
		_, symbol, _ := splitName(b.name)
		sym, err := old.handle.Lookup(symbol)
		if err != nil {
			panic(fmt.Sprintf("module cache: symbol %q vanished from module %q during reload rollback",
				symbol, old.pkg))
		}
		b.retarget(r, fresh, old, sym)
	}
	r.unref(old)   // the migration pin
	r.unref(fresh) // the loader's reference; fresh was never cached and dies here
}

// retarget moves b from one module to another. The destination is referenced
// before the source is released so neither side can be destroyed mid-move.
func (b *Binding) retarget(r *Registry, from, to *Module, sym dynlib.Symbol) {
	from.bindings.Remove(b.elem)
	b.elem = to.bindings.PushBack(b)
	b.module = to
	b.symbol = sym
	to.ref()
	r.unref(from)
}
