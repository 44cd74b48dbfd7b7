// Package configutil loads json5 configuration files with optional
// machine-local overrides.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func parseInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return true, nil
}

// localPath derives the override file's path, config.json5 ->
// config.local.json5.
func localPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// ReadConfig parses the named file, then merges <name>.local.<ext> over
// it when that file exists. Returns os.ErrNotExist when neither file is
// present.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := parseInto(name, &out)
	if err != nil {
		return out, err
	}

	override := localPath(name)
	var local T
	foundLocal, err := parseInto(override, &local)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, local, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", override)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks from the working directory up to the
// filesystem root looking for the named config file, so tests and
// tools run from subdirectories still find the repo-level config.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return zero, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return zero, os.ErrNotExist
		}
		current = parent
	}
}
