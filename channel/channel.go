// Package channel loads and validates the gateway's channel configuration.
//
// A channel is one exposed JSON-RPC endpoint: a URL path, the set of methods
// it may invoke, its wire data format and an optional security definition.
// Configuration is YAML with ${VAR} environment expansion applied before
// parsing.
package channel

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wire data formats a channel can speak.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Channel is one configured JSON-RPC endpoint.
type Channel struct {
	Name             string   `yaml:"name"`
	URLPath          string   `yaml:"url_path"`
	IsActive         bool     `yaml:"is_active"`
	DataFormat       string   `yaml:"data_format"`
	Security         string   `yaml:"security"`
	ServiceWhitelist []string `yaml:"service_whitelist"`
}

// UnmarshalYAML applies defaults before decoding: channels are active and
// speak JSON unless configured otherwise.
func (c *Channel) UnmarshalYAML(value *yaml.Node) error {
	type plain Channel
	p := plain{
		IsActive:   true,
		DataFormat: FormatJSON,
	}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Channel(p)
	return nil
}

// Format returns the channel's data format, defaulting to JSON when unset.
func (c *Channel) Format() string {
	if c.DataFormat == "" {
		return FormatJSON
	}
	return c.DataFormat
}

// Config is the full channel configuration file.
type Config struct {
	Channels []Channel `yaml:"channels"`
}

// Load reads, expands and parses the configuration at path.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel config: %w", err)
	}
	return Parse(buf)
}

// Parse expands ${VAR} references from the environment, decodes the YAML and
// validates the result.
func Parse(buf []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(buf))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse channel config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every channel and rejects duplicates.
func (c *Config) Validate() error {
	names := make(map[string]struct{}, len(c.Channels))
	paths := make(map[string]struct{}, len(c.Channels))

	for i := range c.Channels {
		ch := &c.Channels[i]
		if err := ch.Validate(); err != nil {
			return err
		}
		if _, dup := names[ch.Name]; dup {
			return fmt.Errorf("channel config: duplicate channel name %q", ch.Name)
		}
		if _, dup := paths[ch.URLPath]; dup {
			return fmt.Errorf("channel config: duplicate url_path %q", ch.URLPath)
		}
		names[ch.Name] = struct{}{}
		paths[ch.URLPath] = struct{}{}
	}
	return nil
}

// Validate checks one channel definition.
func (c *Channel) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("channel config: channel has no name")
	}
	if c.URLPath == "" {
		return fmt.Errorf("channel %q: url_path is required", c.Name)
	}
	if !strings.HasPrefix(c.URLPath, "/") {
		return fmt.Errorf("channel %q: url_path %q must start with /", c.Name, c.URLPath)
	}
	switch c.DataFormat {
	case "", FormatJSON, FormatCBOR:
	default:
		return fmt.Errorf("channel %q: unknown data_format %q", c.Name, c.DataFormat)
	}
	return nil
}

// Get returns the channel with the given name.
func (c *Config) Get(name string) (*Channel, bool) {
	for i := range c.Channels {
		if c.Channels[i].Name == name {
			return &c.Channels[i], true
		}
	}
	return nil, false
}
