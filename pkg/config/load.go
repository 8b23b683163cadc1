package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

// Format is the encoding of a configuration document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from a file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

var envPattern = regexp.MustCompile(`@env\('([^']*)'\)`)

// ErrMissingEnv is returned when an @env('NAME') reference names an unset
// environment variable.
var ErrMissingEnv = errors.New("environment variable not set")

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Load reads and parses the configuration file at path.
func Load(path string) (*RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading runtime config: %w", err)
	}
	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document. @env('NAME') references are
// replaced with the variable's value before decoding, and the result is
// checked for structural completeness.
func Parse(data []byte, format Format) (*RuntimeConfig, error) {
	expanded, err := ExpandEnv(string(data), os.LookupEnv)
	if err != nil {
		return nil, err
	}

	raw := []byte(expanded)
	if format == FormatYAML {
		raw, err = yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("converting yaml: %w", err)
		}
	}

	var cfg RuntimeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decoding runtime config: %w", err)
	}

	if err := structValidator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("incomplete runtime config: %w", err)
	}

	return &cfg, nil
}

// ExpandEnv substitutes every @env('NAME') in s using lookup.
func ExpandEnv(s string, lookup func(string) (string, bool)) (string, error) {
	var missing []string
	out := envPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := envPattern.FindStringSubmatch(m)[1]
		v, ok := lookup(name)
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}
