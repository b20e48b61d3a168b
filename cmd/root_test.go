package cmd

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGlobalState() *globalState {
	return &globalState{
		fsys:    afero.NewMemMapFs(),
		envVars: map[string]string{},
		logger:  logrus.New(),
	}
}

func TestSearchPathResolver(t *testing.T) {
	t.Parallel()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/a/geo.so", []byte("x"), 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/b/crypto.dylib", []byte("x"), 0o755))
	require.NoError(t, fsys.MkdirAll("/a/dirpkg.so", 0o755))

	resolve := searchPathResolver(fsys, []string{"/a", "/b"})

	path, err := resolve("geo")
	require.NoError(t, err)
	assert.Equal(t, "/a/geo.so", path)

	path, err = resolve("crypto")
	require.NoError(t, err)
	assert.Equal(t, "/b/crypto.dylib", path)

	_, err = resolve("nosuch")
	require.Error(t, err)

	// Directories never resolve, even with a matching name.
	_, err = resolve("dirpkg")
	require.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	gs := newTestGlobalState()
	gs.flags.verbose = true
	require.NoError(t, gs.setupLogger())
	assert.Equal(t, logrus.DebugLevel, gs.logger.GetLevel())

	gs = newTestGlobalState()
	gs.flags.logFormat = "json"
	require.NoError(t, gs.setupLogger())
	assert.IsType(t, &logrus.JSONFormatter{}, gs.logger.Formatter)

	gs = newTestGlobalState()
	gs.flags.logFormat = "yaml"
	require.Error(t, gs.setupLogger())

	gs = newTestGlobalState()
	gs.flags.logOutput = "file=/server.log"
	require.NoError(t, gs.setupLogger())
	gs.logger.Info("hello")
	ok, err := afero.Exists(gs.fsys, "/server.log")
	require.NoError(t, err)
	assert.True(t, ok)
}
