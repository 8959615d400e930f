package awskms

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config provides the AWS KMS client configuration. An empty config is
// valid: region and credentials then come from the standard AWS
// environment.
type Config struct {
	// Region specifies the AWS region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint specifies a custom KMS endpoint, used with local stacks.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// LoadConfig loads the client configuration from a YAML or JSON file.
func LoadConfig(file string) (*Config, error) {
	if file == "" {
		return &Config{}, nil
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var cfg Config
	if strings.HasSuffix(file, ".json") {
		err = json.Unmarshal(raw, &cfg)
	} else {
		err = yaml.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to parse config: %s", file)
	}
	return &cfg, nil
}
