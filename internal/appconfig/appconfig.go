// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default timeout for engine and scoring-service HTTP requests.
	defaultRequestTimeout = 600 * time.Second
	// DefaultNumCandidates is the number of caption candidates sampled per image.
	DefaultNumCandidates = 15
	// DefaultCandidateTemperature is the sampling temperature for candidate generation.
	DefaultCandidateTemperature = 1.0
)

// Host types recognized in the configuration.
const (
	HostTypeCaption = "caption"
	HostTypeLM      = "lm"
	HostTypePlugin  = "plugin"
	HostTypeScorer  = "scorer"
)

// Config represents the top-level application configuration.
type Config struct {
	Hosts                       []Host   `json:"hosts"`
	CaptionEngine               string   `json:"captionEngine"`
	LMEngine                    string   `json:"lmEngine"`
	Plugins                     []string `json:"plugins,omitempty"`
	NumCandidates               int      `json:"numCandidates,omitempty"`
	CandidateTemperature        float64  `json:"candidateTemperature,omitempty"`
	Prompt                      string   `json:"prompt,omitempty"`
	OutputJSONPath              string   `json:"outputJsonPath,omitempty"`
	CandidateKey                string   `json:"candidateKey,omitempty"`
	ReferenceKey                string   `json:"referenceKey,omitempty"`
	ImagePathKey                string   `json:"imagePathKey,omitempty"`
	ImageRootDir                string   `json:"imageRootDir,omitempty"`
	OverwriteCandidates         bool     `json:"overwriteCandidates"`
	OverwriteCandidateSummaries bool     `json:"overwriteCandidateSummaries"`
	Device                      string   `json:"device,omitempty"`
	TimeoutSeconds              int      `json:"timeout,omitempty"`
	Debug                       bool     `json:"debug"`
	NoProgress                  bool     `json:"noProgress"`
	LogFile                     string   `json:"logFile,omitempty"`
	ConfigPath                  string   `json:"-"`
}

// Host represents a single server that backs an engine or the scoring service.
type Host struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Type  string `json:"type"`
	Model string `json:"model,omitempty"`
	Local bool   `json:"local,omitempty"`
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "capeval.log"
}

// OutputPath returns the path the final evaluation JSON is written to.
func (c Config) OutputPath() string {
	if strings.TrimSpace(c.OutputJSONPath) != "" {
		return c.OutputJSONPath
	}
	return "output.json"
}

// ImageRoot returns the directory image paths are resolved against.
func (c Config) ImageRoot() string {
	if strings.TrimSpace(c.ImageRootDir) != "" {
		return c.ImageRootDir
	}
	return "."
}

// CandidateCount returns the number of candidates to sample per image.
func (c Config) CandidateCount() int {
	if c.NumCandidates > 0 {
		return c.NumCandidates
	}
	return DefaultNumCandidates
}

// Temperature returns the sampling temperature for candidate generation.
func (c Config) Temperature() float64 {
	if c.CandidateTemperature > 0 {
		return c.CandidateTemperature
	}
	return DefaultCandidateTemperature
}

// ResolvedDevice returns the compute device handed to local engine factories.
func (c Config) ResolvedDevice() string {
	if d := strings.TrimSpace(c.Device); d != "" {
		return d
	}
	return "cpu"
}

// OverwriteSummaries reports whether summary fields must be recomputed.
// Overwriting candidates invalidates summaries derived from them, so the
// candidates flag forces this one.
func (c Config) OverwriteSummaries() bool {
	return c.OverwriteCandidateSummaries || c.OverwriteCandidates
}

// PromptText returns the summarization prompt. When the configured value names
// an existing file, the file's contents win over the literal text.
func (c Config) PromptText() (string, error) {
	prompt := c.Prompt
	if prompt == "" {
		return "", nil
	}
	if info, err := os.Stat(prompt); err == nil && !info.IsDir() {
		data, err := os.ReadFile(prompt)
		if err != nil {
			return "", fmt.Errorf("could not read prompt file %q: %w", prompt, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return prompt, nil
}

// HostByName returns the configured host with the given name and type.
func (c Config) HostByName(name, hostType string) (Host, error) {
	for _, host := range c.Hosts {
		if host.Name == name && host.Type == hostType {
			return host, nil
		}
	}
	return Host{}, fmt.Errorf("no %s host named %q in configuration", hostType, name)
}

// ScorerHost returns the scoring-service host. Exactly one scorer host is expected.
func (c Config) ScorerHost() (Host, error) {
	for _, host := range c.Hosts {
		if host.Type == HostTypeScorer {
			return host, nil
		}
	}
	return Host{}, errors.New("no scorer host in configuration")
}

// Load reads the application configuration from the specified path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("no configuration file found at %q", path)
		}
		return Config{}, err
	}
	if len(config.Hosts) == 0 {
		return Config{}, errors.New("config must contain at least one host")
	}
	config.ConfigPath = path
	return config, nil
}

func loadFromPath(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := validateSchema(data); err != nil {
		return Config{}, fmt.Errorf("invalid config file %q: %w", path, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("could not parse config file %q: %w", path, err)
	}
	return config, nil
}
