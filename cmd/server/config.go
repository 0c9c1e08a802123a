package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// config is the server configuration. Every field has a sensible default so
// the file is optional; secrets are preferably taken from the environment.
type config struct {
	Port     string    `yaml:"port"`
	Password string    `yaml:"password"`
	LogLevel string    `yaml:"logLevel"`
	LLM      llmConfig `yaml:"llm"`
	RPC      rpcConfig `yaml:"rpc"`
}

type llmConfig struct {
	Model     string `yaml:"model"`
	APIKey    string `yaml:"apiKey"`
	BaseURL   string `yaml:"baseURL"`
	TimeoutMS int    `yaml:"timeoutMs"`
}

type rpcConfig struct {
	Endpoint string `yaml:"endpoint"`
}

const (
	defaultPort     = "8080"
	defaultModel    = "gpt-5-nano"
	defaultPassword = "project_block"
)

func loadConfig(path string) (config, error) {
	cfg := config{
		Port:     defaultPort,
		Password: defaultPassword,
		LLM:      llmConfig{Model: defaultModel},
	}

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}

	// Environment takes precedence over the file.
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("APP_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AI_MODEL_NAME"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AI_API_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AI_API_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.LLM.TimeoutMS = ms
		}
	}
	if v := os.Getenv("RPC_ENDPOINT"); v != "" {
		cfg.RPC.Endpoint = v
	}

	return cfg, nil
}

func (c config) llmTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutMS) * time.Millisecond
}
