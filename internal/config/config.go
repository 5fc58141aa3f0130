package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config models giglane.yml, the per-workspace marketplace rules.
type Config struct {
	Workspace struct {
		ID   string `yaml:"id"`
		Kind string `yaml:"kind"`
	} `yaml:"workspace"`
	Agencies struct {
		Catalog map[string]struct {
			Description string `yaml:"description"`
		} `yaml:"catalog"`
		Aliases map[string]string `yaml:"aliases"`
	} `yaml:"agencies"`
	Handles struct {
		MinLength     int    `yaml:"min_length"`
		Pattern       string `yaml:"pattern"`
		MailboxDomain string `yaml:"mailbox_domain"`
	} `yaml:"handles"`
	Budget struct {
		WarnPct int64 `yaml:"warn_pct"`
	} `yaml:"budget"`
}

// Load reads and validates config from a workspace directory.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with gg workspace config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Workspace.ID == "" {
		return fmt.Errorf("config.workspace.id is required")
	}
	if c.Workspace.Kind != "marketplace" {
		return fmt.Errorf("config.workspace.kind must be 'marketplace'")
	}
	if len(c.Agencies.Catalog) == 0 {
		return fmt.Errorf("config.agencies.catalog is required")
	}
	for alias, target := range c.Agencies.Aliases {
		if alias == "" {
			return fmt.Errorf("config.agencies.aliases contains empty alias")
		}
		if _, ok := c.Agencies.Catalog[target]; !ok {
			return fmt.Errorf("alias %s references unknown agency type %s", alias, target)
		}
	}
	if c.Handles.MinLength < 1 {
		return fmt.Errorf("config.handles.min_length must be >= 1")
	}
	if c.Handles.Pattern != "" {
		if _, err := regexp.Compile(c.Handles.Pattern); err != nil {
			return fmt.Errorf("config.handles.pattern: %w", err)
		}
	}
	if c.Budget.WarnPct <= 0 || c.Budget.WarnPct >= 100 {
		return fmt.Errorf("config.budget.warn_pct must be between 1 and 99")
	}
	return nil
}

// AgencyTypes returns the catalog as a set.
func (c *Config) AgencyTypes() map[string]bool {
	types := make(map[string]bool, len(c.Agencies.Catalog))
	for name := range c.Agencies.Catalog {
		types[name] = true
	}
	return types
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "giglane.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(workspaceID string) string {
	return fmt.Sprintf(defaultTemplate, workspaceID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a workspace.
func Default(workspaceID string) *Config {
	var cfg Config
	cfg.Workspace.ID = workspaceID
	cfg.Workspace.Kind = "marketplace"
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, workspaceID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `workspace:
  id: %s
  kind: marketplace

agencies:
  catalog:
    va_collective:
      description: "Virtual assistant collective"
    design_studio:
      description: "Design and branding studio"
    dev_shop:
      description: "Software development shop"
    marketing_crew:
      description: "Marketing and growth crew"
  aliases:
    va: va_collective
    design: design_studio
    dev: dev_shop
    marketing: marketing_crew

handles:
  min_length: 3
  pattern: "^[A-Za-z0-9_-]+$"
  mailbox_domain: ".com"

budget:
  warn_pct: 30
`
