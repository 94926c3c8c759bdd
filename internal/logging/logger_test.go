package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_DefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(Options{Level: "info"})
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, logger.Out)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestInitLogger_TextFormat(t *testing.T) {
	logger, err := InitLogger(Options{Level: "warn", Format: "TEXT"})
	require.NoError(t, err)
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}

func TestInitLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := InitLogger(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestInitLogger_FallbackWhenDirectoryCannotBeCreated(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not a dir"), 0o644))

	logger, err := InitLogger(Options{
		Level:    "info",
		FilePath: filepath.Join(blocker, "sub", "archiver.log"),
	})
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, logger.Out)
}

func TestInitLogger_CreatesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "archiver.log")
	logger, err := InitLogger(Options{Level: "debug", FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("test")
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestBaseFields(t *testing.T) {
	fields := BaseFields("archive", "config.yaml")
	assert.Equal(t, "archive", fields["action"])
	assert.Equal(t, "config.yaml", fields["configPath"])

	item := ItemFields("42", 3)
	assert.Equal(t, "42", item["item_id"])
	assert.Equal(t, 3, item["page"])
}
