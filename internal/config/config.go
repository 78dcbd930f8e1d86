// Package config feeds a YAML file into kong as a flag resolver and expands
// home-relative paths.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// YAML is a kong.ConfigurationLoader. Keys name flags with either dashes or
// underscores (api-url or api_url). Subcommand flags are matched by their own
// name, so `addr: 0.0.0.0:8000` configures `serve --addr`.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	normalized := make(map[string]any, len(values))
	for k, v := range values {
		normalized[strings.ReplaceAll(k, "-", "_")] = v
	}

	b, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return kong.JSON(bytes.NewReader(b))
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	return expanded, nil
}
