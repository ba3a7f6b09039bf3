package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

func TestParseKeyValuePairs(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    map[string]string
		wantErr string
	}{
		{name: "single pair", input: []string{"env=production"}, want: map[string]string{"env": "production"}},
		{name: "multiple pairs", input: []string{"env=prod", "db=myapp"}, want: map[string]string{"env": "prod", "db": "myapp"}},
		{name: "nil input", input: nil, want: map[string]string{}},
		{name: "empty value", input: []string{"key="}, want: map[string]string{"key": ""}},
		{name: "value with equals", input: []string{"conn=host=localhost dbname=test"}, want: map[string]string{"conn": "host=localhost dbname=test"}},
		{name: "last wins", input: []string{"a=1", "a=2"}, want: map[string]string{"a": "2"}},
		{name: "missing equals", input: []string{"novalue"}, wantErr: "key=value format"},
		{name: "empty key", input: []string{"=value"}, wantErr: "empty key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyValuePairs(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMerge_LaterLayersWin(t *testing.T) {
	got := Merge(
		map[string]string{"host": "config", "port": "5432"},
		nil,
		map[string]string{"host": "file"},
		map[string]string{"host": "flag"},
	)
	assert.Equal(t, map[string]string{"host": "flag", "port": "5432"}, got)
}

func TestExpand(t *testing.T) {
	t.Setenv("DBOBJ_TEST_FROM_ENV", "env-host")

	got, err := Expand("${host}:${port}", map[string]string{"host": "db1", "port": "6543"})
	require.NoError(t, err)
	assert.Equal(t, "db1:6543", got)

	got, err = Expand("${DBOBJ_TEST_FROM_ENV}", nil)
	require.NoError(t, err)
	assert.Equal(t, "env-host", got)

	got, err = Expand("plain", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	_, err = Expand("${zz_missing} ${aa_missing}", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dbobj.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "aa_missing, zz_missing")
}
