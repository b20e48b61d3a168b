// Package log implements additional logrus hooks for the server's logger.
package log

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// fileHook appends formatted log lines to a file.
type fileHook struct {
	fsys      afero.Fs
	formatter logrus.Formatter
	path      string
	levels    []logrus.Level

	w      *bufio.Writer
	closer io.Closer
}

// FileHookFromConfigLine builds a logrus hook from a `--log-output` config
// line of the form `file=path[,level=lvl]`. The path is required.
func FileHookFromConfigLine(
	fsys afero.Fs, getwd func() (string, error), line string, formatter logrus.Formatter,
) (logrus.Hook, error) {
	hook := &fileHook{
		fsys:      fsys,
		formatter: formatter,
		levels:    logrus.AllLevels,
	}

	parts := strings.SplitN(line, "=", 2)
	if parts[0] != "file" {
		return nil, fmt.Errorf("logfile configuration should be in the form `file=path-to-local-file` but is `%s`", line)
	}
	if err := hook.parseArgs(line); err != nil {
		return nil, err
	}
	if err := hook.openFile(getwd); err != nil {
		return nil, err
	}
	return hook, nil
}

func (h *fileHook) parseArgs(line string) error {
	tokens := strings.Split(line, ",")

	for _, token := range tokens {
		key, value, _ := strings.Cut(token, "=")
		switch key {
		case "file":
			if value == "" {
				return fmt.Errorf("filepath must not be empty")
			}
			h.path = value
		case "level":
			level, err := logrus.ParseLevel(value)
			if err != nil {
				return err
			}
			h.levels = logrus.AllLevels[:level+1]
		default:
			return fmt.Errorf("unknown logfile config key %s", key)
		}
	}

	return nil
}

// openFile opens the configured file and prepares it for writing.
func (h *fileHook) openFile(getwd func() (string, error)) error {
	path := h.path
	if !filepath.IsAbs(path) {
		cwd, err := getwd()
		if err != nil {
			return fmt.Errorf("'%s' is a relative path and couldn't determine the current directory: %w", path, err)
		}
		path = filepath.Join(cwd, path)
	}

	if fi, err := h.fsys.Stat(path); err == nil && fi.IsDir() {
		return fmt.Errorf("cannot be a directory: %s", path)
	}

	file, err := h.fsys.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open logfile %s: %w", path, err)
	}

	h.w = bufio.NewWriter(file)
	h.closer = file
	return nil
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	message, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("failed to format log message: %w", err)
	}
	if _, err := h.w.Write(message); err != nil {
		return err
	}
	return h.w.Flush()
}

func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}
