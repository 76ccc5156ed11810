package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	blzerrors "github.com/standardbeagle/blz/internal/errors"
)

const (
	globalFileName   = "global.toml"
	settingsFileName = "settings.toml"
)

// LoadGlobal reads <root>/global.toml. A missing file is not an error: it
// yields DefaultGlobalConfig(), matching the teacher's fallback-to-defaults
// behavior for a project with no config file yet.
func LoadGlobal(root string) (*GlobalConfig, error) {
	path := filepath.Join(root, globalFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultGlobalConfig()
		cfg.Paths.Root = root
		return cfg, nil
	}
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "config.load_global", err)
	}

	cfg := DefaultGlobalConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, blzerrors.Wrap(blzerrors.Config, "config.load_global", err)
	}
	if cfg.Paths.Root == "" {
		cfg.Paths.Root = root
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveGlobal writes global.toml atomically (temp file + rename), per
// spec.md §4.1's storage write contract.
func SaveGlobal(root string, cfg *GlobalConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return blzerrors.Wrap(blzerrors.Serialization, "config.save_global", err)
	}
	return atomicWrite(filepath.Join(root, globalFileName), data)
}

// LoadSettings reads sources/<alias>/settings.toml. A missing file returns
// (nil, nil): settings.toml is optional.
func LoadSettings(sourceDir string) (*SourceSettings, error) {
	path := filepath.Join(sourceDir, settingsFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, blzerrors.Wrap(blzerrors.Io, "config.load_settings", err)
	}
	var s SourceSettings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, blzerrors.Wrap(blzerrors.Config, "config.load_settings", err)
	}
	return &s, nil
}

// SaveSettings writes settings.toml atomically.
func SaveSettings(sourceDir string, s *SourceSettings) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return blzerrors.Wrap(blzerrors.Serialization, "config.save_settings", err)
	}
	return atomicWrite(filepath.Join(sourceDir, settingsFileName), data)
}

// atomicWrite implements the spec's "write to *.tmp in the same directory,
// fsync, rename" contract, shared by config and storage.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return blzerrors.Wrap(blzerrors.Io, "config.atomic_write", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return blzerrors.Wrap(blzerrors.Io, "config.atomic_write", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return blzerrors.Wrap(blzerrors.Io, "config.atomic_write", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return blzerrors.Wrap(blzerrors.Io, "config.atomic_write", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return blzerrors.Wrap(blzerrors.Io, "config.atomic_write", err)
	}
	return nil
}
