package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

const templateFile = "config.yaml"

func GenerateTemplateConfig(writeToFile bool) (Config, error) {
	cfg := Config{
		BindAddress: DefaultBindAddress,
		Port:        DefaultPort,

		LogLevel: DefaultLogLevel,

		Greeting: DefaultGreeting,

		APIServer:       "",
		APIServerSecret: "",

		History: HistoryConfig{
			Size: DefaultHistorySize,
			TTL:  DefaultHistoryTTL,
		},
	}

	if writeToFile {
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to marshal template config to YAML: %w", err)
		}
		if err := os.WriteFile(templateFile, data, 0644); err != nil {
			return Config{}, fmt.Errorf("failed to write template config to file: %w", err)
		}
	}
	return cfg, nil
}
