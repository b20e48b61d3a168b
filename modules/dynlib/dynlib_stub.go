//go:build !(linux || darwin)

package dynlib

import (
	"fmt"
	"runtime"
)

// New returns the host dynamic linker.
func New() Linker {
	return stubLinker{}
}

type stubLinker struct{}

func (stubLinker) Open(string) (Handle, error) {
	return nil, fmt.Errorf("dynlib: native modules are not supported on %s", runtime.GOOS)
}
