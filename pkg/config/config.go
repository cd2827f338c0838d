package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

const (
	// CMIP6Section holds settings shared by every CMIP6 project section.
	CMIP6Section = "config:cmip6"

	DefaultConfigDir = "/esg/config/esgcet"
	DefaultFileName  = "esg.ini"
)

var (
	ErrNoSection = errors.New("section not found")
	ErrNoOption  = errors.New("option not found")
)

// Config is a read-only view over an esg.ini style configuration.
type Config struct {
	file *ini.File
	path string
}

// ProjectSection returns the section name that configures a project.
func ProjectSection(project string) string {
	return "project:" + project
}

func loadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		InsensitiveKeys:            true,
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}
}

// LoadConfig reads an ini file from disk.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := LoadConfigData(data)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// LoadConfigData parses ini content held in memory.
func LoadConfigData(data []byte) (*Config, error) {
	f, err := ini.LoadSources(loadOptions(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &Config{file: f}, nil
}

// Path is the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// Lookup returns the value of key in section.
func (c *Config) Lookup(section, key string) (string, error) {
	sec, err := c.file.GetSection(section)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoSection, section)
	}
	if !sec.HasKey(key) {
		return "", fmt.Errorf("%w: %s in section %s", ErrNoOption, key, section)
	}
	return sec.Key(key).String(), nil
}

// Get returns the value of key in section, or def when either is missing.
func (c *Config) Get(section, key, def string) string {
	value, err := c.Lookup(section, key)
	if err != nil {
		return def
	}
	return value
}

// HasSection reports whether the section exists.
func (c *Config) HasSection(section string) bool {
	_, err := c.file.GetSection(section)
	return err == nil
}

// HasOption reports whether key is set in section.
func (c *Config) HasOption(section, key string) bool {
	_, err := c.Lookup(section, key)
	return err == nil
}

// Sections lists the section names, excluding the implicit DEFAULT section.
func (c *Config) Sections() []string {
	var names []string
	for _, name := range c.file.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Projects returns the project names that have a project:<name> section.
func (c *Config) Projects() []string {
	var projects []string
	for _, name := range c.Sections() {
		if strings.HasPrefix(name, "project:") {
			projects = append(projects, strings.TrimPrefix(name, "project:"))
		}
	}
	return projects
}

// SplitRecord splits a multi-line option into records, one per non-blank
// line, with each field separated by sep and trimmed.
func SplitRecord(option, sep string) [][]string {
	var records [][]string
	for _, line := range strings.Split(option, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, sep)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		records = append(records, fields)
	}
	return records
}

// SplitLine splits a single-line, comma separated option into trimmed,
// non-empty values.
func SplitLine(option string) []string {
	var values []string
	for _, v := range strings.Split(option, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// GetConfigDir returns the directory that holds esg.ini.
func GetConfigDir() string {
	if dir := os.Getenv("ESGINI_DIR"); dir != "" {
		return dir
	}
	return DefaultConfigDir
}

// GetConfigPath returns the esg.ini path, preferring the ESGINI variable.
func GetConfigPath() string {
	return getEnv("ESGINI", filepath.Join(GetConfigDir(), DefaultFileName))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
