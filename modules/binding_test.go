package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iDang3r/tarantool/errext"
	"github.com/iDang3r/tarantool/modules/dynlib"
	"github.com/iDang3r/tarantool/modules/modulestest"
)

// Scenario: two legacy bindings against one package share a single cached
// module, and unbinding both leaves only the cache's reference.
func TestLegacyBindRefcounts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{
		"f1": retOK(1),
		"f2": retOK(2),
	})
	env.writeModule(t, "m", "m-v1")

	b1 := env.registry.NewBinding("m.f1")
	b2 := env.registry.NewBinding("m.f2")
	require.NoError(t, b1.Bind())
	require.NoError(t, b2.Bind())

	require.Equal(t, 1, env.registry.legacy.len())
	m := env.registry.legacy.find("m")
	require.NotNil(t, m)
	assert.Equal(t, 3, m.Refs()) // cache + f1 + f2
	assert.Equal(t, 2, m.NumBindings())
	assert.Same(t, m, b1.Module())
	assert.Same(t, m, b2.Module())
	assert.NotEqual(t, b1.Addr(), b2.Addr())
	assert.Len(t, env.linker.Opened, 1)
	assertInvariants(t, env.registry)

	b1.Unbind()
	b2.Unbind()
	assert.Equal(t, 1, m.Refs())
	assert.False(t, b1.Resolved())
	assert.False(t, env.linker.Opened[0].Closed)

	env.registry.legacy.remove(m)
	env.registry.unref(m)
	assert.True(t, env.linker.Opened[0].Closed)
	require.NoError(t, env.registry.Close())
}

// Scenario: a binding that is never called loads nothing.
func TestUnresolvedBindingLoadsNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	b := env.registry.NewBinding("m.f1")
	assert.False(t, b.Resolved())
	b.Unbind()

	assert.Equal(t, 0, env.registry.legacy.len())
	assert.Empty(t, env.linker.Opened)
	require.NoError(t, env.registry.Close())
}

func TestBindIsIdempotent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{"f1": retOK()})
	env.writeModule(t, "m", "m-v1")

	b := env.registry.NewBinding("m.f1")
	require.NoError(t, b.Bind())
	require.NoError(t, b.Bind())
	assert.Equal(t, 2, b.Module().Refs())
}

func TestBindErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{"f1": retOK()})
	env.writeModule(t, "m", "m-v1")
	env.writeModule(t, "broken", "no-such-image")

	testCases := []struct {
		name string
		kind errext.Kind
	}{
		{name: "", kind: errext.BadName},
		{name: ".f", kind: errext.BadName},
		{name: "nosuchpkg.f", kind: errext.NotFound},
		{name: "broken.f", kind: errext.LoadError},
		{name: "m.nosuchfn", kind: errext.SymbolNotFound},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b := env.registry.NewBinding(tc.name)
			err := b.Bind()
			require.Error(t, err)
			assert.Equal(t, tc.kind, errext.KindOf(err))
			assert.False(t, b.Resolved())
		})
	}
}

// A symbol miss right after a fresh load leaves the package cached: the
// image itself is fine, only this entry point is absent from it.
func TestBindSymbolMissKeepsModuleCached(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{"f1": retOK()})
	env.writeModule(t, "m", "m-v1")

	err := env.registry.NewBinding("m.nosuchfn").Bind()
	require.Error(t, err)
	assert.Equal(t, errext.SymbolNotFound, errext.KindOf(err))

	m := env.registry.legacy.find("m")
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Refs())
	assertInvariants(t, env.registry)
	require.NoError(t, env.registry.Close())
}

func TestModernBindingRefcounts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{"f1": retOK("hi")})
	env.writeModule(t, "m", "m-v1")

	m, err := env.registry.LoadModern("m")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Refs()) // cache + caller

	b := env.registry.NewModernBinding("m.f1", m)
	require.NoError(t, b.Bind())
	assert.Equal(t, 3, m.Refs())
	assert.Same(t, m, b.Module())
	assertInvariants(t, env.registry)

	res, err := b.Call(nil)
	require.NoError(t, err)
	vals, err := DecodeResult(res)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"hi"}, vals)

	b.Unbind()
	assert.Equal(t, 2, m.Refs())
	env.registry.Unload(m)
	assert.Equal(t, 1, m.Refs())
	require.NoError(t, env.registry.Close())
}

func TestModernBindingSymbolMiss(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{"f1": retOK()})
	env.writeModule(t, "m", "m-v1")

	m, err := env.registry.LoadModern("m")
	require.NoError(t, err)

	b := env.registry.NewModernBinding("m.nosuchfn", m)
	err = b.Bind()
	require.Error(t, err)
	assert.Equal(t, errext.SymbolNotFound, errext.KindOf(err))
	assert.Equal(t, 2, m.Refs()) // the transient reference was released

	env.registry.Unload(m)
	require.NoError(t, env.registry.Close())
}

func TestCallResolvesLazily(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{
		"sum": func(call *dynlib.Call) int32 {
			args, err := DecodeResult(call.Args)
			if err != nil {
				call.Diag = err.Error()
				return -1
			}
			var sum int64
			for _, v := range args[0].([]interface{}) {
				sum += v.(int64)
			}
			if err := call.Return(sum); err != nil {
				return -1
			}
			return 0
		},
	})
	env.writeModule(t, "m", "m-v1")

	b := env.registry.NewBinding("m.sum")
	args, err := EncodeArgs(int64(19), int64(23))
	require.NoError(t, err)

	res, err := b.Call(args)
	require.NoError(t, err)
	assert.True(t, b.Resolved())
	assert.Equal(t, 1, env.registry.legacy.len())

	vals, err := DecodeResult(res)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.EqualValues(t, 42, vals[0])

	b.Unbind()
	require.NoError(t, env.registry.Close())
}

func TestCallNativeError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.linker.AddImage("m-v1", map[string]modulestest.Export{
		"diag": func(call *dynlib.Call) int32 {
			call.Diag = "user code says no"
			return 1
		},
		"silent": func(*dynlib.Call) int32 { return 7 },
	})
	env.writeModule(t, "m", "m-v1")

	_, err := env.registry.NewBinding("m.diag").Call(nil)
	require.Error(t, err)
	assert.Equal(t, errext.NativeError, errext.KindOf(err))
	assert.EqualError(t, err, "user code says no")

	// A failure with no diagnostic gets a synthesized one.
	_, err = env.registry.NewBinding("m.silent").Call(nil)
	require.Error(t, err)
	assert.Equal(t, errext.NativeError, errext.KindOf(err))
	assert.EqualError(t, err, "m.silent failed with status 7")
}
