package modules

import (
	"container/list"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/iDang3r/tarantool/errext"
	"github.com/iDang3r/tarantool/lib/fsext"
)

// load stages a private copy of the object file at path and maps it. The
// dynamic linker caches images by path, so opening the original file twice
// would hand back the same image; loading through a unique staging path gives
// every generation of a library its own mapping.
func (r *Registry) load(pkg, path string) (*Module, error) {
	fi, err := r.fsys.Stat(path)
	if err != nil {
		return nil, errext.WithKind(fmt.Errorf("stat %s: %w", path, err), errext.IoError)
	}
	identity := identityOf(fi)

	stageDir, err := afero.TempDir(r.fsys, r.cfg.stagingRoot(), "modcache")
	if err != nil {
		return nil, errext.WithKind(fmt.Errorf("creating staging directory: %w", err), errext.IoError)
	}
	staged := filepath.Join(stageDir, pkg+filepath.Ext(path))

	if err := fsext.CopyFile(r.fsys, path, staged); err != nil {
		_ = r.fsys.RemoveAll(stageDir)
		return nil, errext.WithKind(fmt.Errorf("staging %s: %w", path, err), errext.IoError)
	}

	handle, err := r.linker.Open(staged)
	// The open handle keeps the image mapped; the staged copy is garbage
	// either way, and failing to drop it is not fatal.
	r.removeStaging(staged, stageDir)
	if err != nil {
		return nil, errext.WithKind(fmt.Errorf("loading %s: %w", path, err), errext.LoadError)
	}

	r.logger.WithFields(logrus.Fields{
		"package":  pkg,
		"path":     path,
		"identity": identity.String(),
	}).Debug("native module loaded")

	return &Module{
		pkg:      pkg,
		handle:   handle,
		identity: identity,
		refs:     1,
		bindings: list.New(),
	}, nil
}

func (r *Registry) removeStaging(staged, stageDir string) {
	if err := r.fsys.Remove(staged); err != nil {
		r.logger.WithError(err).WithField("path", staged).Warn("failed to unlink staged module copy")
	}
	if err := r.fsys.Remove(stageDir); err != nil {
		r.logger.WithError(err).WithField("path", stageDir).Warn("failed to remove staging directory")
	}
}
