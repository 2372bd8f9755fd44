package aisbridge

import (
	"fmt"
	"os"
)

// APIKeyEnvVar is the environment variable checked by ResolveAPIKey.
const APIKeyEnvVar = "AISBRIDGE_API_KEY"

// ResolveAPIKey picks the provider API key from, in priority order, an
// explicit flag value, the AISBRIDGE_API_KEY environment variable, and the
// api_key entry of the loaded config. A network credential should not be
// forced into a plaintext CLI argument, so the environment takes priority
// over the config file, and the flag (the most explicit, session-scoped
// source) takes priority over both.
func ResolveAPIKey(flagValue string, cfg Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(APIKeyEnvVar); env != "" {
		return env, nil
	}
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	return "", fmt.Errorf("%w: no API key from --api-key, %s, or config api_key", ErrConfigInvalid, APIKeyEnvVar)
}
