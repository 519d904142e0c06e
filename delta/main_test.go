package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFiles(t *testing.T) {
	files := []string{"a.dat", "b.dat", "c.dat", "d.dat", "e.dat"}

	assert.Equal(t, files, selectFiles(files, 0, 0))
	assert.Equal(t, []string{"c.dat", "d.dat", "e.dat"}, selectFiles(files, 2, 0))
	assert.Equal(t, []string{"c.dat", "d.dat"}, selectFiles(files, 2, 2))
	assert.Equal(t, []string{"a.dat"}, selectFiles(files, 0, 1))
	assert.Empty(t, selectFiles(files, 10, 0))
}

func TestFindDataFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run2.dat", "run1.dat", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{}, 0o644))
	}

	files, err := findDataFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "run1.dat"),
		filepath.Join(dir, "run2.dat"),
	}, files)
}

func TestLoadConfiguration(t *testing.T) {
	content := `{
		"path": "/data/run1",
		"file_out": "run1.h5",
		"daughterboard": "NL11",
		"motherboard": "#33",
		"firmware": "2212b",
		"pixels": [[66, 67], [170, 171]],
		"delta_window": 20000,
		"apply_calibration": false,
		"num_workers": 4
	}`
	filename := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

	config, err := LoadConfiguration(filename)
	require.NoError(t, err)

	assert.Equal(t, "/data/run1", config.Path)
	assert.Equal(t, "2212b", config.Firmware)
	assert.Equal(t, 20000.0, config.DeltaWindow)
	assert.False(t, config.ApplyCalibration)
	assert.Equal(t, 4, config.NumWorkers)
	assert.True(t, config.Pixels.Grouped)
	assert.Equal(t, []int{66, 67}, config.Pixels.Left)
	assert.Equal(t, []int{170, 171}, config.Pixels.Right)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 512, config.Timestamps)
	assert.Equal(t, "sqlite", config.DBDriver)
	assert.True(t, config.WriteData)
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
