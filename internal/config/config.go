package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LastFM holds the credentials for the audioscrobbler web API.
type LastFM struct {
	APIKey string `yaml:"api_key"`
}

// Config holds all bot configuration
type Config struct {
	Nick         string `yaml:"nick"`
	Alternate    string `yaml:"alternate"`
	Server       string `yaml:"server"`
	Port         int    `yaml:"port"`
	SASLUsername string `yaml:"sasl_username"`
	SASLPassword string `yaml:"sasl_password"`
	RealName     string `yaml:"realname"`
	Channel      string `yaml:"channel"`

	// Admins lists the services accounts allowed to run admin-only
	// commands. Matched against the account, never the nick.
	Admins []string `yaml:"admins"`

	// Accounts maps an IRC nick to a Last.FM account name, used when a
	// command gives no explicit target.
	Accounts map[string]string `yaml:"accounts"`

	LastFM  LastFM `yaml:"lastfm"`
	DataDir string `yaml:"data_dir"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if cfg.Nick == "" {
		cfg.Nick = "Orinoco"
	}
	if cfg.Alternate == "" {
		cfg.Alternate = cfg.Nick + "_"
	}
	if cfg.Port == 0 {
		cfg.Port = 6697
	}
	if cfg.RealName == "" {
		cfg.RealName = "Back with a new rhyme."
	}
	if cfg.Channel == "" {
		cfg.Channel = "#music"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server == "" {
		return fmt.Errorf("config: server is required")
	}
	if c.SASLUsername == "" || c.SASLPassword == "" {
		return fmt.Errorf("config: sasl_username and sasl_password are required")
	}
	if c.LastFM.APIKey == "" {
		return fmt.Errorf("config: lastfm api_key is required")
	}
	return nil
}
