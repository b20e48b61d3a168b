//go:build linux || darwin

package dynlib

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
)

// handle is a local stand-in for runtime/cgo.Handle. Importing the real
// runtime/cgo package pulls in its cgo-runtime glue, which collides with
// purego's cgo-free fakecgo shim when CGO_ENABLED=0; this reimplements the
// same opaque-uintptr-token behavior without that dependency.
type handle uintptr

var (
	handleIdx atomic.Uintptr
	handles   sync.Map
)

func newHandle(v any) handle {
	h := handleIdx.Add(1)
	if h == 0 {
		panic("dynlib: ran out of handle space")
	}
	handles.Store(h, v)
	return handle(h)
}

func (h handle) Delete() {
	_, ok := handles.LoadAndDelete(uintptr(h))
	if !ok {
		panic("dynlib: misuse of an invalid handle")
	}
}

// New returns the host dynamic linker.
func New() Linker {
	return hostLinker{}
}

type hostLinker struct{}

func (hostLinker) Open(path string) (Handle, error) {
	// RTLD_LOCAL keeps generations of the same library from shadowing each
	// other's exports; RTLD_NOW surfaces unresolved references at load time
	// instead of at first call.
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &hostHandle{dl: h}, nil
}

type hostHandle struct {
	dl     uintptr
	closed bool
}

func (h *hostHandle) Lookup(name string) (Symbol, error) {
	addr, err := purego.Dlsym(h.dl, name)
	if err != nil {
		return nil, err
	}
	return &hostSymbol{addr: addr}, nil
}

func (h *hostHandle) Close() error {
	if h.closed {
		return fmt.Errorf("dynlib: handle already closed")
	}
	h.closed = true
	return purego.Dlclose(h.dl)
}

type hostSymbol struct {
	addr uintptr
}

func (s *hostSymbol) Addr() uintptr {
	return s.addr
}

func (s *hostSymbol) Invoke(call *Call) int32 {
	var begin, end uintptr
	if len(call.Args) > 0 {
		begin = uintptr(unsafe.Pointer(&call.Args[0]))
		end = begin + uintptr(len(call.Args))
	}
	ctx := newHandle(call)
	defer ctx.Delete()
	r1, _, _ := purego.SyscallN(s.addr, uintptr(ctx), begin, end)
	return int32(r1)
}
