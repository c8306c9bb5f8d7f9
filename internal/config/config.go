// Package config loads the fragio configuration file.
//
// The file is YAML, decoded strictly (unknown keys are errors), completed
// with defaults, and then validated against an embedded CUE schema.
//
//	server: relational:mysql
//	params:
//	  host: db.internal
//	  port: 3306
//	  user: fragio
//	  database: odb
//	daemon:
//	  address: /run/fragio/io.sock
//	  journal: /var/lib/fragio/journal.db
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/ioserver"
	"github.com/roach88/fragio/internal/translate"
)

//go:embed schema.cue
var schemaCUE string

// Config is the whole configuration file.
type Config struct {
	// Server is the TYPE:SUBTYPE identifier clients resolve.
	Server string        `yaml:"server" json:"server,omitempty"`
	Params driver.Params `yaml:"params" json:"params,omitempty"`

	// Manifest is an optional driver alias manifest.
	Manifest string `yaml:"manifest" json:"manifest,omitempty"`

	MaxQueryLength int    `yaml:"max_query_length" json:"max_query_length"`
	Daemon         Daemon `yaml:"daemon" json:"daemon"`
}

// Daemon configures the I/O server.
type Daemon struct {
	Network string        `yaml:"network" json:"network"`
	Address string        `yaml:"address" json:"address,omitempty"`
	Backend string        `yaml:"backend" json:"backend"`
	Journal string        `yaml:"journal" json:"journal,omitempty"`
	Params  driver.Params `yaml:"params" json:"params,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.MaxQueryLength == 0 {
		c.MaxQueryLength = translate.DefaultMaxLength
	}
	if c.Daemon.Network == "" {
		c.Daemon.Network = "unix"
	}
	if c.Daemon.Backend == "" {
		c.Daemon.Backend = ioserver.DefaultBackend
	}
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration data. Empty
// input yields the defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if len(bytes.TrimSpace(data)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks c against the schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reports the first schema violation.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}
	return fmt.Errorf("invalid config: %s", errs[0].Error())
}

// DaemonConfig converts the daemon section into a server configuration.
func (c *Config) DaemonConfig() ioserver.Config {
	return ioserver.Config{
		Network: c.Daemon.Network,
		Address: c.Daemon.Address,
		Backend: c.Daemon.Backend,
		Params:  c.Daemon.Params,

		MaxQueryLength: c.MaxQueryLength,
	}
}
