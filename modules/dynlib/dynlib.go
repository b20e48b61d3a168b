// Package dynlib is the seam between the module cache and the host's dynamic
// linker. The production implementation drives dlopen/dlsym/dlclose through
// purego; tests substitute an in-process linker so that the cache can be
// exercised without compiling shared objects.
package dynlib

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Linker opens shared-library images.
type Linker interface {
	// Open maps the image at path with immediate symbol resolution and local
	// scope. Every call returns a distinct handle, even for the same path.
	Open(path string) (Handle, error)
}

// Handle is one mapped image.
type Handle interface {
	// Lookup resolves an exported symbol by name.
	Lookup(name string) (Symbol, error)
	// Close unmaps the image. The caller guarantees no symbol obtained from
	// this handle is invoked afterwards.
	Close() error
}

// Symbol is one resolved entry point.
type Symbol interface {
	// Addr is the entry point's address within the image. Informational; two
	// symbols resolved from different handles never share an address space
	// guarantee.
	Addr() uintptr
	// Invoke runs the entry point with the stored-procedure ABI:
	// fn(ctx, args, args_end) -> int, zero meaning success. The callee reads
	// msgpack arguments from call.Args and reports through call.
	Invoke(call *Call) int32
}

// Call is the exchange for a single native invocation.
type Call struct {
	// Args holds the msgpack-encoded argument array.
	Args []byte
	// Result accumulates the msgpack-encoded values the callee returned.
	Result []byte
	// Diag carries the callee's diagnostic when it fails. May stay empty even
	// on failure; the caller synthesizes a generic message then.
	Diag string
}

// Return appends msgpack-encoded values to the call's result port.
func (c *Call) Return(vals ...interface{}) error {
	for _, v := range vals {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		c.Result = append(c.Result, data...)
	}
	return nil
}
