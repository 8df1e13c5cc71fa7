package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"newsflash-bot/internal/registry"
)

type sourcesFile struct {
	Sources []registry.Descriptor `yaml:"sources"`
}

// LoadSources reads source descriptors from a YAML file. Descriptor
// validation is left to the registry.
func LoadSources(filePath string) ([]registry.Descriptor, error) {
	if filePath == "" {
		return nil, fmt.Errorf("sources file path is empty")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sources file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close sources file: %v\n", closeErr)
		}
	}()

	var parsed sourcesFile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse sources YAML: %w", err)
	}

	if len(parsed.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", filePath)
	}

	return parsed.Sources, nil
}

// Sources returns the descriptors named by sources_file, or the built-in
// defaults when no file is configured.
func (c *Config) Sources() ([]registry.Descriptor, error) {
	if c.SourcesFile == "" {
		return registry.Defaults(), nil
	}
	return LoadSources(c.SourcesFile)
}
