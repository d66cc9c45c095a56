// Package config loads tagged configuration structs from YAML or TOML files
// and environment variables.
//
// Values are resolved in three passes: envDefault tags, then the optional
// file, then environment variables. A value present in the environment always
// wins; a value present in the file beats the tag default.
//
//	type Config struct {
//	    Address string `env:"APP_ADDRESS" envDefault:":8080" yaml:"address"`
//	}
//
//	var cfg Config
//	if err := config.Load("config.yaml", &cfg); err != nil {
//	    return err
//	}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Errors.
var (
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
	ErrReadFile          = errors.New("config: failed to read file")
	ErrDecode            = errors.New("config: failed to decode file")
	ErrEnv               = errors.New("config: failed to parse environment")
)

// disabledDefaultTag is a tag name no field uses, so the env pass skips defaults.
const disabledDefaultTag = "envDefaultDisabled"

// Load fills dst (a pointer to struct) from defaults, the file at path and
// the process environment. An empty path skips the file pass.
func Load(path string, dst any) error {
	return LoadWithEnv(path, dst, nil)
}

// LoadWithEnv is Load with an explicit environment.
// A nil environment reads the process environment.
func LoadWithEnv(path string, dst any, environ map[string]string) error {
	if err := env.ParseWithOptions(dst, env.Options{Environment: map[string]string{}}); err != nil {
		return errors.Join(ErrEnv, err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Join(ErrReadFile, err)
		}
		if err := Decode(Format(path), data, dst); err != nil {
			return err
		}
	}

	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	opts := env.Options{
		Environment:         environ,
		DefaultValueTagName: disabledDefaultTag,
	}
	if err := env.ParseWithOptions(dst, opts); err != nil {
		return errors.Join(ErrEnv, err)
	}
	return nil
}

// Format returns the format name derived from a file extension:
// "yaml", "toml" or "" when unknown.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

// Decode unmarshals data in the given format into dst.
func Decode(format string, data []byte, dst any) error {
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, dst)
	case "toml":
		err = toml.Unmarshal(data, dst)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return errors.Join(ErrDecode, err)
	}
	return nil
}

// Encode marshals v in the given format.
func Encode(format string, v any) ([]byte, error) {
	switch format {
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "toml":
		return toml.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
