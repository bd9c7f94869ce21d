package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"scriptreview/internal/pipeline"
)

// LoadMetadata reads case metadata from a YAML or JSON file. The format is
// taken from the extension, or detected from the content when there is none.
func LoadMetadata(path string) (pipeline.CaseMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.CaseMetadata{}, fmt.Errorf("read metadata: %w", err)
	}
	return ParseMetadata(data, filepath.Ext(path))
}

// ParseMetadata parses metadata bytes. ext is a format hint (".json",
// ".yaml", ".yml"); empty means detect.
func ParseMetadata(data []byte, ext string) (pipeline.CaseMetadata, error) {
	var m pipeline.CaseMetadata
	ext = strings.ToLower(ext)
	isJSON := ext == ".json" || (ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{"))
	if isJSON {
		if err := json.Unmarshal(data, &m); err != nil {
			return m, fmt.Errorf("parse metadata json: %w", err)
		}
		return m, nil
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse metadata yaml: %w", err)
	}
	return m, nil
}
