package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	s, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/sift/sift.db", s.DatabasePath)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "console", s.LogFormat)
	assert.Zero(t, s.NearDuplicateThreshold)
	assert.InDelta(t, 0.3, s.SimilarThreshold, 1e-9)
	assert.Equal(t, 1, s.Workers)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: `+dir+`/books.db
logging:
  level: debug
  format: json
dedupe:
  near_duplicate_threshold: 0.85
similar:
  threshold: 0.5
categorize:
  workers: 4
`), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "books.db"), s.DatabasePath)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "json", s.LogFormat)
	assert.InDelta(t, 0.85, s.NearDuplicateThreshold, 1e-9)
	assert.InDelta(t, 0.5, s.SimilarThreshold, 1e-9)
	assert.Equal(t, 4, s.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		value   any
		wantErr error
		name    string
		key     string
	}{
		{name: "threshold above one", key: KeySimilarThreshold, value: 1.5, wantErr: common.ErrInvalidConfig},
		{name: "negative near duplicate", key: KeyNearDuplicateThreshold, value: -0.1, wantErr: common.ErrInvalidConfig},
		{name: "zero workers", key: KeyCategorizeWorkers, value: 0, wantErr: common.ErrInvalidConfig},
		{name: "unknown log level", key: KeyLoggingLevel, value: "loud", wantErr: common.ErrInvalidConfig},
		{name: "empty database path", key: KeyDatabasePath, value: "", wantErr: common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SIFT_TEST_DIR", "/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde only", in: "~", want: home},
		{name: "tilde prefix", in: "~/sift/sift.db", want: filepath.Join(home, "sift", "sift.db")},
		{name: "env var", in: "$SIFT_TEST_DIR/sift.db", want: "/data/sift.db"},
		{name: "plain", in: "/var/lib/sift.db", want: "/var/lib/sift.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
