package aisbridge

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAPIKeyPriority(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		os.Setenv(APIKeyEnvVar, "from-env")
		defer os.Unsetenv(APIKeyEnvVar)
		key, err := ResolveAPIKey("from-flag", Config{APIKey: "from-config"})
		assert.NoError(t, err)
		assert.Equal(t, "from-flag", key)
	})

	t.Run("env wins over config", func(t *testing.T) {
		os.Setenv(APIKeyEnvVar, "from-env")
		defer os.Unsetenv(APIKeyEnvVar)
		key, err := ResolveAPIKey("", Config{APIKey: "from-config"})
		assert.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("config is last resort", func(t *testing.T) {
		os.Unsetenv(APIKeyEnvVar)
		key, err := ResolveAPIKey("", Config{APIKey: "from-config"})
		assert.NoError(t, err)
		assert.Equal(t, "from-config", key)
	})

	t.Run("no source is an error", func(t *testing.T) {
		os.Unsetenv(APIKeyEnvVar)
		_, err := ResolveAPIKey("", Config{})
		assert.ErrorIs(t, err, ErrConfigInvalid)
	})
}
