package loadtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes one load test run.
type Scenario struct {
	Name    string
	URL     string
	Method  string
	Body    string
	Headers map[string]string

	// Connections is the number of concurrent request loops
	Connections int
	// Duration bounds the run; zero means run until Requests is reached
	Duration time.Duration
	// Requests caps the total number of requests; zero means no cap
	Requests uint64
	// Timeout applies to each request
	Timeout time.Duration
}

// DefaultScenario returns a scenario that hashes a fixed password against a
// local server for ten seconds over ten connections.
func DefaultScenario() Scenario {
	return Scenario{
		Name:   "bcrypt",
		URL:    "http://localhost:8080/bcrypt",
		Method: http.MethodPost,
		Body:   `{"password":"correct horse battery staple"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Connections: 10,
		Duration:    10 * time.Second,
		Timeout:     10 * time.Second,
	}
}

// Validate checks that the scenario can be run.
func (s Scenario) Validate() error {
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url: %q", s.URL)
	}
	if s.Method == "" {
		return errors.New("method must not be empty")
	}
	if s.Connections <= 0 {
		return errors.New("connections must be positive")
	}
	if s.Duration < 0 {
		return errors.New("duration must be non-negative")
	}
	if s.Duration == 0 && s.Requests == 0 {
		return errors.New("either duration or requests must be set")
	}
	if s.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	return nil
}

// FileConfig is the structure of a scenario file.
type FileConfig struct {
	Scenario ScenarioConfig `yaml:"scenario" json:"scenario"`
}

// ScenarioConfig is the file form of a Scenario. Durations are strings
// accepted by time.ParseDuration.
type ScenarioConfig struct {
	Name        string            `yaml:"name" json:"name"`
	URL         string            `yaml:"url" json:"url"`
	Method      string            `yaml:"method" json:"method"`
	Body        string            `yaml:"body" json:"body"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
	Connections int               `yaml:"connections" json:"connections"`
	Duration    string            `yaml:"duration" json:"duration"`
	Requests    uint64            `yaml:"requests" json:"requests"`
	Timeout     string            `yaml:"timeout" json:"timeout"`
}

// LoadFile reads a YAML or JSON scenario file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var config FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", ext)
	}

	return &config, nil
}

// ToScenario applies the file settings on top of DefaultScenario.
func (f *FileConfig) ToScenario() (Scenario, error) {
	sc := f.Scenario
	s := DefaultScenario()

	if sc.Name != "" {
		s.Name = sc.Name
	}
	if sc.URL != "" {
		s.URL = sc.URL
	}
	if sc.Method != "" {
		s.Method = strings.ToUpper(sc.Method)
	}
	if sc.Body != "" {
		s.Body = sc.Body
	}
	for k, v := range sc.Headers {
		s.Headers[k] = v
	}
	if sc.Connections > 0 {
		s.Connections = sc.Connections
	}
	if sc.Requests > 0 {
		s.Requests = sc.Requests
		// A request budget without an explicit duration runs to completion
		if sc.Duration == "" {
			s.Duration = 0
		}
	}
	if sc.Duration != "" {
		d, err := time.ParseDuration(sc.Duration)
		if err != nil {
			return s, fmt.Errorf("invalid duration: %w", err)
		}
		s.Duration = d
	}
	if sc.Timeout != "" {
		d, err := time.ParseDuration(sc.Timeout)
		if err != nil {
			return s, fmt.Errorf("invalid timeout: %w", err)
		}
		s.Timeout = d
	}

	return s, s.Validate()
}
