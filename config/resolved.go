package config

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"go.yaml.in/yaml/v3"
)

const redactedValue = "******"

// secretKeys are config keys whose values never leave the process.
var secretKeys = map[string]bool{"password": true}

// Resolved returns the configuration as nested maps keyed like config.yml.
// Secrets are masked. Call ApplyDefaults first to see the effective values.
func (c *AppConfig) Resolved() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := mapstructure.Decode(c, &out); err != nil {
		return nil, fmt.Errorf("flatten config: %w", err)
	}
	redact(out)
	return out, nil
}

// WriteResolved writes Resolved as YAML, one top-level key per section.
func (c *AppConfig) WriteResolved(w io.Writer) error {
	resolved, err := c.Resolved()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(resolved); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func redact(m map[string]interface{}) {
	for k, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			redact(val)
		case string:
			switch {
			case val == "":
			case secretKeys[k]:
				m[k] = redactedValue
			case k == "dsn":
				m[k] = redactDSN(val)
			}
		}
	}
}

// redactDSN masks the password of URL-style DSNs. File paths pass through.
func redactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return redactedValue
	}
	return u.Redacted()
}
