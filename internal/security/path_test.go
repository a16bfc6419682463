package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"ulid", "01HZX3K4J8Q2W5E6R7T8Y9U0IA", false},
		{"with extension", "photo.jpg", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"separator", "a/b", true},
		{"backslash", `a\b`, true},
		{"nul byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilePathWithBase(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in base", "file.bin", false},
		{"nested", "sub/file.bin", false},
		{"dotted prefix stays inside", "..hidden", false},
		{"traversal", "../outside", true},
		{"nested traversal", "sub/../../outside", true},
		{"absolute", "/etc/passwd", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePathWithBase(tt.path, base)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilePathWithBase_SiblingPrefix(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "attachments")

	err := ValidateFilePathWithBase("../attachments-other/x", base)
	assert.Error(t, err)
}

func TestStoragePath(t *testing.T) {
	base := t.TempDir()

	path, err := StoragePath(base, "abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "abc"), path)

	_, err = StoragePath(base, "../abc")
	assert.Error(t, err)
}
