// Package cmd implements the modcache command line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/iDang3r/tarantool/errext"
	"github.com/iDang3r/tarantool/lib/fsext"
	"github.com/iDang3r/tarantool/log"
	"github.com/iDang3r/tarantool/modules"
	"github.com/iDang3r/tarantool/modules/dynlib"
)

type globalFlags struct {
	verbose    bool
	logOutput  string
	logFormat  string
	searchPath []string
}

// globalState groups the process-external state so commands reach it in one
// place and tests can substitute it.
type globalState struct {
	fsys    afero.Fs
	envVars map[string]string
	stdOut  *os.File
	stdErr  *os.File
	logger  *logrus.Logger
	flags   globalFlags
}

func newGlobalState() *globalState {
	envVars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envVars[k] = v
		}
	}
	logger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: &logrus.TextFormatter{ForceColors: isatty.IsTerminal(os.Stderr.Fd())},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
	return &globalState{
		fsys:    afero.NewOsFs(),
		envVars: envVars,
		stdOut:  os.Stdout,
		stdErr:  os.Stderr,
		logger:  logger,
		flags:   globalFlags{searchPath: []string{"."}},
	}
}

func (gs *globalState) setupLogger() error {
	if gs.flags.verbose {
		gs.logger.SetLevel(logrus.DebugLevel)
	}
	switch gs.flags.logFormat {
	case "json":
		gs.logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
	default:
		return fmt.Errorf("unsupported log format %q", gs.flags.logFormat)
	}
	if strings.HasPrefix(gs.flags.logOutput, "file") {
		hook, err := log.FileHookFromConfigLine(gs.fsys, os.Getwd, gs.flags.logOutput, gs.logger.Formatter)
		if err != nil {
			return err
		}
		gs.logger.AddHook(hook)
		gs.logger.SetOutput(nopWriter{})
	}
	return nil
}

// newRegistry builds a module registry over the real filesystem and dynamic
// linker, configured from the environment.
func (gs *globalState) newRegistry() (*modules.Registry, error) {
	cfg, err := modules.GetConsolidatedConfig(gs.envVars)
	if err != nil {
		return nil, err
	}
	resolver := searchPathResolver(gs.fsys, gs.flags.searchPath)
	return modules.NewRegistry(gs.logger, gs.fsys, dynlib.New(), resolver, cfg), nil
}

func newRootCommand(gs *globalState) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "modcache",
		Short:         "Inspect and call native database modules",
		Long:          "modcache loads the shared libraries that implement native stored procedures,\nthe same way the server does, and lets you inspect or call them from the shell.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return gs.setupLogger()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.SortFlags = false
	flags.BoolVarP(&gs.flags.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&gs.flags.logOutput, "log-output", "stderr",
		"change the output for server logs, possible values are stderr, file=./path.fileformat")
	flags.StringVar(&gs.flags.logFormat, "log-format", "", "log output format (text, json)")
	flags.StringSliceVar(&gs.flags.searchPath, "search-path", gs.flags.searchPath,
		"directories to search for module object files")

	rootCmd.AddCommand(getInspectCmd(gs), getCallCmd(gs))
	return rootCmd
}

// Execute runs the CLI and exits the process on error.
func Execute() {
	gs := newGlobalState()
	if err := newRootCommand(gs).Execute(); err != nil {
		msg := err.Error()
		if kind := errext.KindOf(err); kind != errext.KindNone {
			msg = fmt.Sprintf("%s: %s", kind, msg)
		}
		fmt.Fprintln(gs.stdErr, color.RedString("error: %s", msg))
		os.Exit(1)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// searchPathResolver looks for "<dir>/<pkg><ext>" across the search path, the
// way the server resolves logical package names.
func searchPathResolver(fsys afero.Fs, dirs []string) modules.PathResolverFunc {
	exts := []string{".so", ".dylib"}
	return func(pkg string) (string, error) {
		for _, dir := range dirs {
			for _, ext := range exts {
				path := filepath.Join(dir, pkg+ext)
				if fsext.Exists(fsys, path) {
					return path, nil
				}
			}
		}
		return "", fmt.Errorf("no object file for package %q in %v", pkg, dirs)
	}
}
