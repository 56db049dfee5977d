package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestReadErrorTemplateConstant   = "unable to read manifest %s: %w"
	manifestParseErrorTemplateConstant  = "unable to parse manifest %s: %w"
	manifestWriteErrorTemplateConstant  = "unable to write manifest %s: %w"
	manifestEncodeErrorTemplateConstant = "unable to encode manifest: %w"
	manifestFilePermissionsConstant     = 0o644
)

// Load reads and validates the manifest persisted at manifestPath.
func Load(manifestPath string) (*Manifest, error) {
	manifestBytes, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return nil, fmt.Errorf(manifestReadErrorTemplateConstant, manifestPath, readError)
	}

	loadedManifest := &Manifest{}
	if parseError := yaml.Unmarshal(manifestBytes, loadedManifest); parseError != nil {
		return nil, fmt.Errorf(manifestParseErrorTemplateConstant, manifestPath, parseError)
	}

	if validationError := loadedManifest.Validate(); validationError != nil {
		return nil, validationError
	}
	return loadedManifest, nil
}

// Save persists the manifest as one YAML document at manifestPath.
func Save(document *Manifest, manifestPath string) error {
	encodedManifest, encodeError := Encode(document)
	if encodeError != nil {
		return encodeError
	}
	if writeError := os.WriteFile(manifestPath, encodedManifest, manifestFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(manifestWriteErrorTemplateConstant, manifestPath, writeError)
	}
	return nil
}

// Encode renders the manifest in its persisted YAML form. Map keys are
// emitted in sorted order, so encoding is deterministic.
func Encode(document *Manifest) ([]byte, error) {
	encodedManifest, encodeError := yaml.Marshal(document)
	if encodeError != nil {
		return nil, fmt.Errorf(manifestEncodeErrorTemplateConstant, encodeError)
	}
	return encodedManifest, nil
}
