package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GeneralTarget is the mandatory fallback specialist. Unknown and
// low-confidence routes resolve to it.
const GeneralTarget = "general_response"

// SpecialistsConfig holds the specialist routing configuration.
type SpecialistsConfig struct {
	Targets             map[string]Target `yaml:"targets"`
	ConfidenceThreshold float64           `yaml:"confidence_threshold,omitempty"`
	MaxRounds           int               `yaml:"max_rounds,omitempty"`
	Classifier          PhaseConfig       `yaml:"classifier,omitempty"`
	Summarizer          PhaseConfig       `yaml:"summarizer,omitempty"`
}

// Target defines one specialist: how queries are matched to it and
// which adapter/model answers for it.
type Target struct {
	Triggers     []string `yaml:"triggers"`
	Adapter      string   `yaml:"adapter"`
	Model        string   `yaml:"model"`
	Instructions string   `yaml:"instructions,omitempty"`
	Categories   []string `yaml:"categories,omitempty"`
}

// PhaseConfig configures one budgeted orchestration phase
// (classification or summarization).
type PhaseConfig struct {
	Adapter      string `yaml:"adapter,omitempty"`
	Model        string `yaml:"model,omitempty"`
	RequestLimit int    `yaml:"request_limit,omitempty"`
	TokenLimit   int    `yaml:"token_limit,omitempty"`
}

// LoadSpecialistsConfig reads specialist configuration from a YAML file.
func LoadSpecialistsConfig(path string) (*SpecialistsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SpecialistsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applySpecialistsDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural requirements on the configuration.
func (c *SpecialistsConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("specialists config is nil")
	}
	if _, ok := c.Targets[GeneralTarget]; !ok {
		return fmt.Errorf("targets must include %q", GeneralTarget)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold %v out of range [0,1]", c.ConfidenceThreshold)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be at least 1, got %d", c.MaxRounds)
	}
	for name, target := range c.Targets {
		if target.Adapter == "" {
			return fmt.Errorf("target %q has no adapter", name)
		}
		if target.Model == "" {
			return fmt.Errorf("target %q has no model", name)
		}
	}
	return nil
}

// DefaultSpecialistsConfig returns the default specialist configuration.
func DefaultSpecialistsConfig() *SpecialistsConfig {
	cfg := &SpecialistsConfig{
		Targets: map[string]Target{
			"threat_analysis": {
				Triggers: []string{
					"attacker", "ioc", "ttp", "intrusion", "malware",
					"ransomware", "phishing", "compromise", "exploit", "threat",
				},
				Adapter:      "anthropic",
				Model:        "claude-opus-4-20250514",
				Instructions: "You are a threat analysis specialist. Analyze indicators of compromise, attacker tactics, and intrusion evidence, then give concrete containment and remediation advice.",
				Categories:   []string{"threat", "malware", "attack"},
			},
			"network_security": {
				Triggers: []string{
					"host", "port", "service", "firewall", "scan",
					"vulnerability", "misconfiguration", "ssh", "rdp", "network",
				},
				Adapter:      "anthropic",
				Model:        "claude-sonnet-4-20250514",
				Instructions: "You are a network security specialist. Assess exposed hosts, ports, services, and configurations, and recommend hardening steps.",
				Categories:   []string{"network", "firewall", "infrastructure"},
			},
			"account_security": {
				Triggers: []string{
					"account", "password", "mfa", "privilege", "login",
					"credential", "identity", "authentication",
				},
				Adapter:      "openai",
				Model:        "gpt-5.2-thinking",
				Instructions: "You are an account security specialist. Investigate credential misuse, anomalous logins, and privilege problems, and propose response actions.",
				Categories:   []string{"identity", "access", "authentication"},
			},
			GeneralTarget: {
				Adapter:      "anthropic",
				Model:        "claude-sonnet-4-20250514",
				Instructions: "You are a security helpdesk assistant. Answer general security questions clearly and point out when a question needs a specialist.",
			},
		},
	}

	applySpecialistsDefaults(cfg)
	return cfg
}

func applySpecialistsDefaults(cfg *SpecialistsConfig) {
	if cfg == nil {
		return
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.55
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = 2
	}
	if cfg.Classifier.Adapter == "" {
		cfg.Classifier.Adapter = "openai"
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "gpt-5.2-instant"
	}
	if cfg.Classifier.RequestLimit == 0 {
		cfg.Classifier.RequestLimit = 5
	}
	if cfg.Classifier.TokenLimit == 0 {
		cfg.Classifier.TokenLimit = 2000
	}
	if cfg.Summarizer.Adapter == "" {
		cfg.Summarizer.Adapter = "openai"
	}
	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = "gpt-5.2-instant"
	}
	if cfg.Summarizer.RequestLimit == 0 {
		cfg.Summarizer.RequestLimit = 3
	}
	if cfg.Summarizer.TokenLimit == 0 {
		cfg.Summarizer.TokenLimit = 1000
	}
}
