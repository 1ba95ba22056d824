// Package config implements the explicit, passed-by-value replacement for
// the reference engine's process-wide lazily-initialized ShahConfig
// singleton (see SPEC_FULL.md "Configuration" / spec.md §9 design note:
// "treat it as a context passed explicitly to every store constructor").
package config

import (
	"os"
	"strconv"

	"github.com/naoina/toml"
)

// Config is passed explicitly to every top-level store constructor. There
// is no package-level mutable singleton; callers own one value and thread
// it through their own wiring (typically built once in cmd/shahd/main.go).
type Config struct {
	// DataDir is the root directory every store creates its files under.
	DataDir string `toml:"data_dir"`
	// ServerIndex is stamped into every newly allocated gene's Server
	// field; must be nonzero.
	ServerIndex uint32 `toml:"server_index"`
	// AuditDir, if non-empty, enables the pebble-backed order/reply audit
	// sidecar (see package orderlog).
	AuditDir string `toml:"audit_dir"`
	// ListenAddr is the UDP address the order dispatcher binds.
	ListenAddr string `toml:"listen_addr"`
	// MetricsAddr, if non-empty, serves Prometheus metrics over HTTP.
	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns a Config with the reference engine's documented
// environment-variable defaults applied, without reading the environment.
func Default() Config {
	return Config{DataDir: "data", ServerIndex: 1, ListenAddr: "127.0.0.1:9700"}
}

// FromEnv builds a Config from SHAH_DATA_DIR / SHAH_SERVER_INDEX, falling
// back to Default()'s values for anything unset. This is the one place in
// the module allowed to read os.Getenv; everything downstream takes a
// Config value.
func FromEnv() Config {
	c := Default()
	if v := os.Getenv("SHAH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SHAH_SERVER_INDEX"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n != 0 {
			c.ServerIndex = uint32(n)
		}
	}
	return c
}

// LoadTOML reads a Config from a TOML file, falling back to Default() for
// any field the file omits.
func LoadTOML(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := toml.Unmarshal(raw, &c); err != nil {
		return c, err
	}
	return c, nil
}

// WriteTOML persists c to path, creating or truncating it.
func (c Config) WriteTOML(path string) error {
	raw, err := toml.Marshal(&c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
