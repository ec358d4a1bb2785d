package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	c, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, WriteDefault(path))
	require.Error(t, WriteDefault(path), "existing file must not be overwritten")

	c, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestLoadFileReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = "debug"
format = "json"

[database]
path = "/tmp/x.db"

[hasher]
thread_name = "digest"
priority = "background"

[stepper]
frame_rate = 30
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", c.Log.Level)
	require.Equal(t, "json", c.Log.Format)
	require.Equal(t, "/tmp/x.db", c.Database.Path)
	require.Equal(t, "digest", c.Hasher.ThreadName)
	require.Equal(t, "background", c.Hasher.Priority)
	require.Equal(t, 30, c.Stepper.FrameRate)
	require.Equal(t, "core", c.Stepper.ThreadName)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERIALCORE_STEPPER_FRAME_RATE", "50")
	t.Setenv("SERIALCORE_HASHER_PRIORITY", "user-initiated")

	c, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, 50, c.Stepper.FrameRate)
	require.Equal(t, "user-initiated", c.Hasher.Priority)
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := Default()
	c.Hasher.Priority = "realtime"
	require.ErrorIs(t, c.Validate(), ErrInvalid)

	c = Default()
	c.Stepper.FrameRate = 0
	require.ErrorIs(t, c.Validate(), ErrInvalid)

	c = Default()
	c.Database.Path = " "
	require.ErrorIs(t, c.Validate(), ErrInvalid)
}
