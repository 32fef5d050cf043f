package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validINI = `[Database]
mongodb_uri = mongodb://localhost:27017
database = maillog
collection = messages

[Email]
imap_server = imap.example.com
email = user@example.com
password = hunter2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validINI))

	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.MongoURI)
	assert.Equal(t, "maillog", cfg.Database.Database)
	assert.Equal(t, "messages", cfg.Database.Collection)
	assert.Equal(t, "imap.example.com", cfg.Email.IMAPServer)
	assert.Equal(t, "user@example.com", cfg.Email.Email)
	assert.Equal(t, "hunter2", cfg.Email.Password)
}

func TestLoadMissingField(t *testing.T) {
	content := `[Database]
mongodb_uri = mongodb://localhost:27017
database = maillog
collection = messages

[Email]
imap_server = imap.example.com
email = user@example.com
`

	cfg, err := Load(writeConfig(t, content))

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "Email.password")
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.ini"))

	require.Error(t, err)
	assert.Nil(t, cfg)
}
