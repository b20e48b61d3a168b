package modules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iDang3r/tarantool/errext"
)

// splitName splits a dotted logical name into its package and symbol parts,
// both views into the input. For a name without a dot the package and the
// symbol are the same string, matching a library that exports a function
// named after itself.
func splitName(name string) (pkg, symbol string, err error) {
	if name == "" {
		return "", "", errext.WithKind(errors.New("function name is empty"), errext.BadName)
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, name, nil
	}
	pkg, symbol = name[:i], name[i+1:]
	if pkg == "" || symbol == "" {
		return "", "", errext.WithKind(fmt.Errorf("malformed function name %q", name), errext.BadName)
	}
	return pkg, symbol, nil
}
