package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDirectoryWritable(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(fs afero.Fs) string
		readOnly    bool
		wantErr     bool
		errContains string
	}{
		{
			name:  "existing directory",
			setup: func(fs afero.Fs) string { require.NoError(t, fs.MkdirAll("/data/grib", 0755)); return "/data/grib" },
		},
		{
			name:  "missing directory is created",
			setup: func(fs afero.Fs) string { return "/data/new/grib" },
		},
		{
			name: "path is a file",
			setup: func(fs afero.Fs) string {
				require.NoError(t, afero.WriteFile(fs, "/data/file", []byte("x"), 0644))
				return "/data/file"
			},
			wantErr:     true,
			errContains: "is not a directory",
		},
		{
			name:        "empty path",
			setup:       func(fs afero.Fs) string { return "" },
			wantErr:     true,
			errContains: "cannot be empty",
		},
		{
			name:        "read only filesystem",
			setup:       func(fs afero.Fs) string { return "/data/grib" },
			readOnly:    true,
			wantErr:     true,
			errContains: "/data/grib",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fs afero.Fs = afero.NewMemMapFs()
			path := tt.setup(fs)
			if tt.readOnly {
				fs = afero.NewReadOnlyFs(fs)
			}

			err := CheckDirectoryWritable(fs, path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)

			info, err := fs.Stat(path)
			require.NoError(t, err)
			assert.True(t, info.IsDir())

			exists, err := afero.Exists(fs, filepath.Join(path, writeTestFile))
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestCheckFileDirectoryWritable(t *testing.T) {
	fs := afero.NewMemMapFs()

	assert.NoError(t, CheckFileDirectoryWritable(fs, "", "log"))
	assert.NoError(t, CheckFileDirectoryWritable(fs, "/var/lib/gribfetch/gribfetch.db", "database"))

	ok, err := afero.DirExists(fs, "/var/lib/gribfetch")
	require.NoError(t, err)
	assert.True(t, ok)
}
