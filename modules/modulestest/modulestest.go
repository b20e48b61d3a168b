// Package modulestest provides an in-process dynamic linker and related
// fakes for testing code built on the module cache without compiling real
// shared objects.
package modulestest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/iDang3r/tarantool/modules/dynlib"
)

// Export is the Go stand-in for one native entry point.
type Export func(call *dynlib.Call) int32

// Image is a fake shared object: a set of named exports. The content of a
// library file names the image in the linker's table, so "rebuilding" a
// library on disk is writing the file with a different image key.
type Image struct {
	Exports map[string]Export
}

// Linker is a fake dynamic linker reading library files from an afero fs.
// Every Open returns a distinct handle, matching the real linker's behavior
// for distinct staging paths.
type Linker struct {
	FS     afero.Fs
	Images map[string]*Image

	// Opened records every handle ever returned, in open order.
	Opened []*Handle
}

// NewLinker returns a linker with an empty image table.
func NewLinker(fsys afero.Fs) *Linker {
	return &Linker{FS: fsys, Images: make(map[string]*Image)}
}

// AddImage registers exports under a content key.
func (l *Linker) AddImage(key string, exports map[string]Export) {
	l.Images[key] = &Image{Exports: exports}
}

// Open implements dynlib.Linker.
func (l *Linker) Open(path string) (dynlib.Handle, error) {
	data, err := afero.ReadFile(l.FS, path)
	if err != nil {
		return nil, fmt.Errorf("cannot map %s: %w", path, err)
	}
	img, ok := l.Images[string(data)]
	if !ok {
		return nil, fmt.Errorf("%s: invalid ELF header", path)
	}
	h := &Handle{
		Image: img,
		Path:  path,
		base:  uintptr(len(l.Opened)+1) << 20,
		addrs: make(map[string]uintptr),
	}
	l.Opened = append(l.Opened, h)
	return h, nil
}

// Handle is one fake mapped image. Closed is observable so tests can assert
// that a module was destroyed.
type Handle struct {
	Image  *Image
	Path   string
	Closed bool

	base  uintptr
	addrs map[string]uintptr
}

// Lookup implements dynlib.Handle. Addresses are synthetic but stable per
// handle and distinct across handles.
func (h *Handle) Lookup(name string) (dynlib.Symbol, error) {
	export, ok := h.Image.Exports[name]
	if !ok {
		return nil, fmt.Errorf("undefined symbol: %s", name)
	}
	addr, ok := h.addrs[name]
	if !ok {
		addr = h.base + uintptr(len(h.addrs))*0x10
		h.addrs[name] = addr
	}
	return &Symbol{Handle: h, Name: name, Export: export, addr: addr}, nil
}

// Close implements dynlib.Handle.
func (h *Handle) Close() error {
	if h.Closed {
		return fmt.Errorf("double close of %s", h.Path)
	}
	h.Closed = true
	return nil
}

// Symbol is one fake resolved entry point.
type Symbol struct {
	Handle *Handle
	Name   string
	Export Export

	addr uintptr
}

// Addr implements dynlib.Symbol.
func (s *Symbol) Addr() uintptr {
	return s.addr
}

// Invoke implements dynlib.Symbol. Invoking through a closed handle is the
// use-after-unmap bug the cache's pinning exists to prevent, so it panics.
func (s *Symbol) Invoke(call *dynlib.Call) int32 {
	if s.Handle.Closed {
		panic(fmt.Sprintf("modulestest: %s invoked through unmapped image %s", s.Name, s.Handle.Path))
	}
	return s.Export(call)
}

// SearchPathResolver resolves package names to "<root>/<pkg><ext>" files that
// exist on the given fs.
func SearchPathResolver(fsys afero.Fs, root, ext string) func(pkg string) (string, error) {
	return func(pkg string) (string, error) {
		path := filepath.Join(root, pkg+ext)
		if _, err := fsys.Stat(path); err != nil {
			return "", fmt.Errorf("package %s: %w", pkg, os.ErrNotExist)
		}
		return path, nil
	}
}
