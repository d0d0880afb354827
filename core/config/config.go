// Package config loads conversion options from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/mailmd/core"
)

// Load reads path and overlays the keys it sets onto base. The format is
// picked by extension: .yaml, .yml or .toml. Unknown keys are an error, and
// the merged options must validate.
func Load(path string, base core.Options) (core.Options, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading config file %s: %w", path, err)
	}
	opts, err := Decode(contents, filepath.Ext(path), base)
	if err != nil {
		return base, fmt.Errorf("config file %s: %w", path, err)
	}
	return opts, nil
}

// Decode is Load for in-memory contents. ext selects the format and may be
// given with or without the leading dot.
func Decode(contents []byte, ext string, base core.Options) (core.Options, error) {
	opts := base
	// Rules from the file replace the base rules rather than merging into them.
	opts.CustomRules = nil
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(contents))
		dec.KnownFields(true)
		if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			return base, fmt.Errorf("decoding YAML: %w", err)
		}
	case "toml":
		md, err := toml.Decode(string(contents), &opts)
		if err != nil {
			return base, fmt.Errorf("decoding TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return base, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	default:
		return base, fmt.Errorf("unsupported config format %q", ext)
	}
	if opts.CustomRules == nil {
		opts.CustomRules = base.CustomRules
	}
	if err := opts.Validate(); err != nil {
		return base, err
	}
	return opts, nil
}
