package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add usage index", "add_usage_index"},
		{"Add-Usage-Index", "add_usage_index"},
		{"add__usage__index", "add_usage_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "init")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.FileExists(t, first.UpPath)
	assert.FileExists(t, first.DownPath)

	second, err := CreateMigration(dir, "Add campaign index")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_campaign_index.up.sql"), second.UpPath)

	content, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Migration: Add campaign index")

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_campaign_index"}, names)
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!")
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMigrations_RepositorySchema(t *testing.T) {
	names, err := ListMigrations("../../../migrations")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_init", names[0])
}
