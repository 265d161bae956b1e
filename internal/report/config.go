package report

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/userhub-io/userhub/internal/config"
)

const (
	// DefaultConfigPath is where the optional userhub YAML file is looked up.
	DefaultConfigPath = ".userhub.yaml"

	// ConfigPathEnvVar overrides DefaultConfigPath.
	ConfigPathEnvVar = "USERHUB_CONFIG_PATH"

	defaultBirthTitle       = "Relatorio de Usuarios"
	defaultIntegrationTitle = "Relatorio de Integracao de Usuarios"
	defaultAuthor           = "userhub"
	defaultTimezone         = "America/Sao_Paulo"
)

type (
	// Config is the presentation block of the userhub YAML file:
	//
	//	report:
	//	  birth_title: Relatorio de Usuarios
	//	  integration_title: Relatorio de Integracao de Usuarios
	//	  author: userhub
	//	  timezone: America/Sao_Paulo
	Config struct {
		Report Presentation `yaml:"report"`
	}

	// Presentation customizes titles, document metadata and the "Gerado em" clock.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	Presentation struct {
		BirthTitle       string `yaml:"birth_title"`
		IntegrationTitle string `yaml:"integration_title"`
		Author           string `yaml:"author"`
		Timezone         string `yaml:"timezone"`
	}
)

// DefaultConfig returns the built-in presentation settings.
func DefaultConfig() *Config {
	return &Config{Report: Presentation{
		BirthTitle:       defaultBirthTitle,
		IntegrationTitle: defaultIntegrationTitle,
		Author:           defaultAuthor,
		Timezone:         defaultTimezone,
	}}
}

// LoadConfig reads presentation settings from the YAML file at path.
//
// The file is optional: a missing, unreadable or invalid file yields DefaultConfig
// and a log line, never an error. Keys left out of the file keep their defaults.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, using default report settings", slog.String("path", path))
		} else {
			slog.Warn("Failed to read config file, using default report settings",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}

		return cfg
	}

	if len(data) == 0 {
		return cfg
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		slog.Warn("Failed to parse config file, using default report settings",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg
	}

	cfg.merge(fromFile.Report)

	return cfg
}

// LoadConfigFromEnv loads the file named by USERHUB_CONFIG_PATH, or .userhub.yaml.
func LoadConfigFromEnv() *Config {
	return LoadConfig(config.GetEnvStr(DefaultConfigPath, ConfigPathEnvVar))
}

// Location resolves Timezone, falling back to UTC when the zone is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		slog.Warn("Unknown report timezone, using UTC",
			slog.String("timezone", c.Report.Timezone),
			slog.String("error", err.Error()))

		return time.UTC
	}

	return loc
}

func (c *Config) merge(p Presentation) {
	if p.BirthTitle != "" {
		c.Report.BirthTitle = p.BirthTitle
	}

	if p.IntegrationTitle != "" {
		c.Report.IntegrationTitle = p.IntegrationTitle
	}

	if p.Author != "" {
		c.Report.Author = p.Author
	}

	if p.Timezone != "" {
		c.Report.Timezone = p.Timezone
	}
}
