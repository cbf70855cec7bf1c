// Package config loads deadvisor's configuration: resolver scope, cache
// behavior, and output formatting.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Config holds all configuration options for deadvisor.
type Config struct {
	Resolver ResolverConfig `koanf:"resolver"`
	Build    BuildConfig    `koanf:"build"`
	Cache    CacheConfig    `koanf:"cache"`
	Output   OutputConfig   `koanf:"output"`
}

// ResolverConfig configures the path scope resolver.
type ResolverConfig struct {
	ProjectRoot      string   `koanf:"project_root"`
	BuildDir         string   `koanf:"build_dir"`
	ExcludedSubpaths []string `koanf:"excluded_subpaths"`
	Gitignore        bool     `koanf:"gitignore"`
}

// BuildConfig locates the build database and controls parallelism.
type BuildConfig struct {
	CompileCommands string `koanf:"compile_commands"`
	Jobs            int    `koanf:"jobs"`
}

// CacheConfig controls the per-translation-unit result cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	TTL     int    `koanf:"ttl"` // hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format   string `koanf:"format"` // text, json, markdown, toon
	Color    bool   `koanf:"color"`
	Verbose  bool   `koanf:"verbose"`
	DeadOnly bool   `koanf:"dead_only"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Resolver: ResolverConfig{
			Gitignore: true,
		},
		Build: BuildConfig{
			CompileCommands: "compile_commands.json",
			Jobs:            0, // 0 means "2x NumCPU", resolved by the pipeline
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".deadvisor/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// schema is the JSON Schema every loaded config document is validated
// against before koanf unmarshals it into a Config, catching malformed
// excluded_subpaths entries (or a wrong-typed jobs/ttl field) before they
// reach the resolver or cache.
const schema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"resolver": {
			"type": "object",
			"properties": {
				"project_root": {"type": "string"},
				"build_dir": {"type": "string"},
				"excluded_subpaths": {
					"type": "array",
					"items": {"type": "string", "minLength": 1}
				},
				"gitignore": {"type": "boolean"}
			}
		},
		"build": {
			"type": "object",
			"properties": {
				"compile_commands": {"type": "string"},
				"jobs": {"type": "integer", "minimum": 0}
			}
		},
		"cache": {
			"type": "object",
			"properties": {
				"enabled": {"type": "boolean"},
				"dir": {"type": "string"},
				"ttl": {"type": "integer", "minimum": 0}
			}
		},
		"output": {
			"type": "object",
			"properties": {
				"format": {"type": "string", "enum": ["text", "json", "markdown", "toon"]},
				"color": {"type": "boolean"},
				"verbose": {"type": "boolean"},
				"dead_only": {"type": "boolean"}
			}
		}
	}
}`

func compiledSchema() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(schema), &doc); err != nil {
		return nil, fmt.Errorf("config: unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("deadvisor-config.json", doc); err != nil {
		return nil, fmt.Errorf("config: add schema resource: %w", err)
	}
	return c.Compile("deadvisor-config.json")
}

// validate decodes raw against the schema before it is unmarshalled into a
// Config, so a malformed field fails fast with a schema-relative error
// instead of silently zero-valuing.
func validate(raw map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	// Round-trip through encoding/json so numeric types match what the
	// schema validator expects (TOML/YAML parsers may hand back int64s or
	// float64s that json.Number-based validation treats uniformly).
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("config: marshal for validation: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("config: decode for validation: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}
	return nil
}

// Load loads configuration from a file, validating it against the config
// schema before unmarshalling.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = koanfjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	if err := validate(k.Raw()); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"deadvisor.toml",
		"deadvisor.yaml",
		"deadvisor.yml",
		"deadvisor.json",
		".deadvisor.toml",
		".deadvisor.yaml",
		".deadvisor.yml",
		".deadvisor.json",
	}
	searchDirs := []string{".", ".deadvisor"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				if cfg, err := Load(path); err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}
