package modules

import (
	"fmt"

	"github.com/iDang3r/tarantool/errext"
)

// LoadModern returns a referenced module for pkg, loading it on first use.
// Unlike the legacy cache, every lookup validates the cached module against
// the file on disk, unless Config.CheckIdentity is false; on a mismatch the stale module is orphaned and a fresh
// image takes its place in the cache. Bindings resolved against the orphan
// are not migrated: modern bindings hold their module directly and release
// it at their own pace.
//
// The caller owns the returned reference and releases it with Unload.
func (r *Registry) LoadModern(pkg string) (*Module, error) {
	path, err := r.resolver.ResolvePath(pkg)
	if err != nil {
		return nil, errext.WithKind(
			fmt.Errorf("no loadable module for package %q: %w", pkg, err), errext.NotFound)
	}

	cached := r.modern.find(pkg)
	if cached == nil {
		m, err := r.load(pkg, path)
		if err != nil {
			return nil, err
		}
		// The loader's reference is the caller's; the cache takes its own.
		r.modern.insert(m)
		return m, nil
	}

	if r.cfg.CheckIdentity.Bool {
		fi, err := r.fsys.Stat(path)
		if err != nil {
			return nil, errext.WithKind(fmt.Errorf("stat %s: %w", path, err), errext.IoError)
		}
		if cur := identityOf(fi); !cur.Equal(cached.identity) {
			fresh, err := r.load(pkg, path)
			if err != nil {
				return nil, err
			}
			r.modern.update(fresh)
			cached.orphan()
			r.unref(cached) // the cache's reference; holders of the orphan release the rest
			r.logger.WithField("package", pkg).Debug("stale native module replaced")
			return fresh, nil
		}
	}

	cached.ref()
	return cached, nil
}

// Unload releases a reference obtained from LoadModern.
func (r *Registry) Unload(m *Module) {
	r.unref(m)
}
