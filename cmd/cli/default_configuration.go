package cli

import _ "embed"

//go:embed default_config.yaml
var embeddedDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns the YAML configuration compiled into the
// binary. It seeds the configuration loader so the CLI works without an
// external configuration file.
func EmbeddedDefaultConfiguration() ([]byte, error) {
	return embeddedDefaultConfiguration, nil
}
