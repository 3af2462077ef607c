package config

import (
	"encoding/pem"
	"io"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := log.New(io.Discard, "", 0)

	cfg, err := initializeFs(fs, logger)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	t.Run("CreateSessionLog", func(t *testing.T) {
		fd, err := cfg.CreateSessionLog("session.log")
		assert.Nil(t, err)
		fd.Close()
	})

	t.Run("OpenEventLog", func(t *testing.T) {
		fd, err := cfg.OpenEventLog()
		assert.Nil(t, err)
		fd.Close()
	})

	t.Run("PrivateKeyPem", func(t *testing.T) {
		keyPem, err := cfg.PrivateKeyPem()
		assert.Nil(t, err)

		block, _ := pem.Decode(keyPem)
		require.NotNil(t, block)
		assert.Equal(t, "PRIVATE KEY", block.Type)
	})

	t.Run("Idempotent", func(t *testing.T) {
		key1, err := cfg.PrivateKeyPem()
		require.NoError(t, err)

		again, err := initializeFs(fs, logger)
		require.NoError(t, err)

		key2, err := again.PrivateKeyPem()
		require.NoError(t, err)
		assert.Equal(t, key1, key2)
	})
}
