package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "Simple key-value pairs",
			content:  "KEY1=value1\nKEY2=value2",
			expected: map[string]string{"KEY1": "value1", "KEY2": "value2"},
		},
		{
			name:     "Quoted values",
			content:  "NAME=\"John Doe\"\nURL='https://api.example.com/v1'",
			expected: map[string]string{"NAME": "John Doe", "URL": "https://api.example.com/v1"},
		},
		{
			name:     "Comments and blank lines",
			content:  "# Database\nDB_HOST=localhost\n\n# Port\nDB_PORT=5432\n",
			expected: map[string]string{"DB_HOST": "localhost", "DB_PORT": "5432"},
		},
		{
			name:     "Export prefix",
			content:  "export REGION=eu-west-1",
			expected: map[string]string{"REGION": "eu-west-1"},
		},
		{
			name:     "Empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseEnvFile([]byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadEnvFiles_LaterFileOverrides(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.env")
	second := filepath.Join(dir, "staging.env")
	require.NoError(t, os.WriteFile(first, []byte("HOST=base\nPORT=5432\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("HOST=staging\n"), 0o644))

	got, err := LoadEnvFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"HOST": "staging", "PORT": "5432"}, got)
}

func TestLoadEnvFiles_MissingFile(t *testing.T) {
	_, err := LoadEnvFiles(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.env")
}
