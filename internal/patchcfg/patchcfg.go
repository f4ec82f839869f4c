// Package patchcfg reads the differ's INI configuration file:
//
//	[compare]
//	from = old-tree        ; source path, or - for "no source"
//	to = new-tree          ; target path
//
//	[output]
//	path = update.spatch   ; container path
//	compress = 1           ; 0|1|false|true
//	icon = app.ico         ; optional, used by the self-extracting wrapper
package patchcfg

import (
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// Config is a parsed differ configuration.
type Config struct {
	// From is the source path, or "-" when building a container of pure
	// ADD frames.
	From string
	// To is the target path.
	To string
	// Output is the container path to write.
	Output string
	// Compress selects LZMA stream compression for every payload.
	Compress bool
	// Icon is passed through to the self-extracting wrapper; the core
	// differ ignores it.
	Icon string
}

// Load reads and validates the INI file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, xerrors.Errorf("patchcfg.Load(%s): %w", path, err)
	}
	compare := f.Section("compare")
	output := f.Section("output")
	cfg := &Config{
		From:   compare.Key("from").String(),
		To:     compare.Key("to").String(),
		Output: output.Key("path").String(),
		Icon:   output.Key("icon").String(),
	}
	if cfg.From == "" {
		return nil, xerrors.Errorf("patchcfg.Load(%s): [compare] from is required", path)
	}
	if cfg.To == "" {
		return nil, xerrors.Errorf("patchcfg.Load(%s): [compare] to is required", path)
	}
	if cfg.Output == "" {
		return nil, xerrors.Errorf("patchcfg.Load(%s): [output] path is required", path)
	}
	if key := output.Key("compress"); key.String() != "" {
		b, err := key.Bool()
		if err != nil {
			return nil, xerrors.Errorf("patchcfg.Load(%s): [output] compress = %q: %w", path, key.String(), err)
		}
		cfg.Compress = b
	}
	return cfg, nil
}
