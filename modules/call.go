package modules

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/iDang3r/tarantool/errext"
	"github.com/iDang3r/tarantool/modules/dynlib"
)

// Call invokes the binding's entry point with a msgpack-encoded argument
// array and returns the msgpack-encoded results. An unresolved legacy
// binding is resolved first.
func (b *Binding) Call(args []byte) ([]byte, error) {
	if b.symbol == nil {
		if err := b.Bind(); err != nil {
			return nil, err
		}
	}

	// Pin the image for the duration of the call. The callee may suspend,
	// and a reload running in the meantime moves the binding's reference to
	// the new module; this pin is then the only thing keeping the old image
	// mapped under the callee's feet.
	m := b.module
	sym := b.symbol
	m.ref()
	defer b.registry.unref(m)

	call := &dynlib.Call{Args: args}
	if rc := sym.Invoke(call); rc != 0 {
		diag := call.Diag
		if diag == "" {
			diag = fmt.Sprintf("%s failed with status %d", b.name, rc)
		}
		return nil, errext.WithKind(errors.New(diag), errext.NativeError)
	}
	return call.Result, nil
}

// EncodeArgs packs call arguments into the msgpack array the native ABI
// expects.
func EncodeArgs(vals ...interface{}) ([]byte, error) {
	return msgpack.Marshal(vals)
}

// DecodeResult unpacks the concatenated msgpack values a callee returned.
func DecodeResult(data []byte) ([]interface{}, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var out []interface{}
	for {
		v, err := dec.DecodeInterface()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}
