package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DatabaseConfig holds the record store location.
type DatabaseConfig struct {
	// MongoURI is the MongoDB connection string.
	MongoURI string `mapstructure:"mongodb_uri"`

	// Database is the database name.
	Database string `mapstructure:"database"`

	// Collection is the collection holding mail records.
	Collection string `mapstructure:"collection"`
}

// EmailConfig holds the mail server endpoint and credentials.
type EmailConfig struct {
	// IMAPServer is the IMAP host, optionally with an explicit port.
	// Bare hosts are dialed on the implicit TLS port 993.
	IMAPServer string `mapstructure:"imap_server"`

	// Email is the account to authenticate as.
	Email string `mapstructure:"email"`

	// Password is the account password.
	Password string `mapstructure:"password"`
}

// Config is the top-level application configuration, read from an
// INI file with [Database] and [Email] sections.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Email    EmailConfig    `mapstructure:"email"`
}

// Load reads configuration from the given INI file path using Viper.
// Every field is required; a missing or empty field fails the load
// with an error naming the key.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// validate checks that all required fields are present.
func (c *Config) validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"Database.mongodb_uri", c.Database.MongoURI},
		{"Database.database", c.Database.Database},
		{"Database.collection", c.Database.Collection},
		{"Email.imap_server", c.Email.IMAPServer},
		{"Email.email", c.Email.Email},
		{"Email.password", c.Email.Password},
	}

	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("missing required field %s", field.key)
		}
	}

	return nil
}
