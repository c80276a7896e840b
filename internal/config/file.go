// Package config loads an optional zipkit.yaml defaults file, letting
// a project pin its preferred compression level, no-compress
// suffixes, and match-case policy without repeating flags on every
// invocation.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"zipkit/internal/session"
	"zipkit/internal/zerr"
)

// File is the on-disk shape of zipkit.yaml.
type File struct {
	Level            *int     `yaml:"level"`
	NoCompressSuffix []string `yaml:"no_compress_suffix"`
	MatchCase        *bool    `yaml:"match_case"`
	TempDir          string   `yaml:"temp_dir"`
	StoreSymlinks    *bool    `yaml:"store_symlinks"`
}

// Load reads and parses path. A missing file is not an error: it
// returns a zero File so callers can treat "no config" the same as
// "empty config".
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, zerr.Wrap(zerr.IO, path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, zerr.Wrap(zerr.Usage, path, err)
	}
	return f, nil
}

// ApplyDefaults overlays f onto cfg wherever cfg still holds the
// zero/unset value, so explicit CLI flags always win over the file.
// match_case is the exception: no flag sets MatchCase, so the file's
// value replaces cfg's whenever the file sets it.
func ApplyDefaults(cfg session.Config, f File) session.Config {
	if cfg.Level == -1 && f.Level != nil {
		cfg.Level = *f.Level
	}
	if len(cfg.NoCompressSuffix) == 0 && len(f.NoCompressSuffix) > 0 {
		cfg.NoCompressSuffix = f.NoCompressSuffix
	}
	if f.MatchCase != nil {
		cfg.MatchCase = *f.MatchCase
	}
	if cfg.TempDir == "" && f.TempDir != "" {
		cfg.TempDir = f.TempDir
	}
	if !cfg.StoreSymlinks && f.StoreSymlinks != nil {
		cfg.StoreSymlinks = *f.StoreSymlinks
	}
	return cfg
}
