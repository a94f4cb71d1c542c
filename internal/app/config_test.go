package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("STUDIO_PM_TEST_KEY", "from-env")
	assert.Equal(t, "from-env", GetEnvWithDefault("STUDIO_PM_TEST_KEY", "fallback"))

	t.Setenv("STUDIO_PM_TEST_KEY", "")
	assert.Equal(t, "fallback", GetEnvWithDefault("STUDIO_PM_TEST_KEY", "fallback"))
}

func TestNewResolvesPathsFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STUDIO_PM_SETTINGS", filepath.Join(dir, "settings.yaml"))
	t.Setenv("GOOGLE_CREDENTIALS_FILE", filepath.Join(dir, "creds.json"))
	t.Setenv("GMAIL_TOKEN_FILE", filepath.Join(dir, "token.json"))
	t.Setenv("COMPANY_NAME", "Norton Interiors")

	a, err := New()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "creds.json"), a.CredentialsFile)
	assert.Equal(t, filepath.Join(dir, "token.json"), a.TokenFile)
	assert.Equal(t, "Norton Interiors", a.Company)
	assert.NotNil(t, a.Settings)
	assert.Equal(t, 3, a.Resilience.SheetRead.MaxRetries)
}

func TestNewDefaults(t *testing.T) {
	t.Setenv("STUDIO_PM_SETTINGS", filepath.Join(t.TempDir(), "settings.yaml"))
	t.Setenv("GOOGLE_CREDENTIALS_FILE", "")
	t.Setenv("GMAIL_TOKEN_FILE", "")
	t.Setenv("COMPANY_NAME", "")

	a, err := New()
	require.NoError(t, err)
	assert.Equal(t, "credentials.json", a.CredentialsFile)
	assert.Equal(t, "gmail_token.json", a.TokenFile)
	assert.Equal(t, "Norton Interiors", a.Company)
}
