package modules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/iDang3r/tarantool/modules/dynlib"
)

// PathResolver maps a logical package name to the shared-object file
// implementing it. Resolution may block; it runs on the cooperative executor
// like everything else here.
type PathResolver interface {
	ResolvePath(pkg string) (string, error)
}

// PathResolverFunc adapts a function to the PathResolver interface.
type PathResolverFunc func(pkg string) (string, error)

// ResolvePath implements PathResolver.
func (f PathResolverFunc) ResolvePath(pkg string) (string, error) {
	return f(pkg)
}

// Registry owns the two module caches and every module loaded through them.
// It is confined to a single cooperative executor; none of its methods are
// safe for use from multiple OS threads.
type Registry struct {
	logger   logrus.FieldLogger
	fsys     afero.Fs
	linker   dynlib.Linker
	resolver PathResolver
	cfg      Config

	legacy *moduleCache
	modern *moduleCache
}

// NewRegistry initializes the caches and wires the registry's collaborators.
func NewRegistry(
	logger logrus.FieldLogger, fsys afero.Fs, linker dynlib.Linker, resolver PathResolver, cfg Config,
) *Registry {
	return &Registry{
		logger:   logger,
		fsys:     fsys,
		linker:   linker,
		resolver: resolver,
		cfg:      cfg,
		legacy:   newModuleCache("legacy"),
		modern:   newModuleCache("modern"),
	}
}

// Stats describes the registry's cache occupancy.
type Stats struct {
	Legacy int `json:"legacy"`
	Modern int `json:"modern"`
}

// Stats returns the current cache sizes.
func (r *Registry) Stats() Stats {
	return Stats{Legacy: r.legacy.len(), Modern: r.modern.len()}
}

// Close drops both caches' references. Modules still referenced elsewhere
// survive as orphans and are reported as an error: by the time the registry
// is torn down every binding and caller reference should be gone.
func (r *Registry) Close() error {
	var leaked []string
	for _, c := range []*moduleCache{r.legacy, r.modern} {
		mods := make([]*Module, 0, len(c.byPkg))
		for _, m := range c.byPkg {
			mods = append(mods, m)
		}
		for _, m := range mods {
			c.remove(m)
			r.unref(m)
			if m.refs > 0 {
				leaked = append(leaked, fmt.Sprintf("%s (%d refs)", m.pkg, m.refs))
			}
		}
	}
	if len(leaked) > 0 {
		sort.Strings(leaked)
		return fmt.Errorf("modules still referenced at teardown: %s", strings.Join(leaked, ", "))
	}
	return nil
}
