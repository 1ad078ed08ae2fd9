package envutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	values := map[string]string{
		"PAYROLLSYNC_HTTP_ADDR": ":9090",
		"ADMIN_PASSWORD":        "a password with spaces",
	}
	require.NoError(t, WriteDotEnv(path, values, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := ReadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	err = WriteDotEnv(path, values, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, WriteDotEnv(path, map[string]string{"A": "1"}, true))
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, ".env")
	second := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(first, []byte("ENVUTIL_TEST_A=from-env\nENVUTIL_TEST_B=from-env\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("ENVUTIL_TEST_B=from-local\nENVUTIL_TEST_C=from-local\n"), 0o600))
	t.Setenv("ENVUTIL_TEST_A", "from-process")
	t.Setenv("ENVUTIL_TEST_B", "")
	require.NoError(t, os.Unsetenv("ENVUTIL_TEST_B"))
	t.Setenv("ENVUTIL_TEST_C", "")
	require.NoError(t, os.Unsetenv("ENVUTIL_TEST_C"))

	require.NoError(t, LoadDotEnv(first, second, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-process", os.Getenv("ENVUTIL_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("ENVUTIL_TEST_B"))
	assert.Equal(t, "from-local", os.Getenv("ENVUTIL_TEST_C"))
}

func TestReadDotEnvMissingFile(t *testing.T) {
	got, err := ReadDotEnv(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
