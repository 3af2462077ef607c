package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"log"

	"github.com/spf13/afero"
)

// Initialize sets up a configuration directory, writing the default
// config, the session log directory and a generated SSH host key.
// Existing files are kept as-is so it's safe to re-run.
func Initialize(path string, logger *log.Logger) (*Configuration, error) {
	return initializeFs(afero.NewBasePathFs(afero.NewOsFs(), path), logger)
}

func initializeFs(fs afero.Fs, logger *log.Logger) (*Configuration, error) {
	if exists, err := afero.Exists(fs, ConfigurationName); err != nil {
		return nil, err
	} else if exists {
		logger.Printf("%s already exists, keeping it", ConfigurationName)
	} else {
		logger.Printf("writing %s", ConfigurationName)
		if err := afero.WriteFile(fs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	logger.Printf("creating %s/", LogsDirName)
	if err := fs.MkdirAll(LogsDirName, 0700); err != nil {
		return nil, err
	}

	if exists, err := afero.Exists(fs, PrivateKeyName); err != nil {
		return nil, err
	} else if exists {
		logger.Printf("%s already exists, keeping it", PrivateKeyName)
	} else {
		logger.Printf("generating %s", PrivateKeyName)
		keyPem, err := generateHostKey()
		if err != nil {
			return nil, err
		}
		if err := afero.WriteFile(fs, PrivateKeyName, keyPem, 0600); err != nil {
			return nil, err
		}
	}

	return loadFs(fs)
}

// generateHostKey creates an ed25519 key in PKCS#8 PEM form, which the
// SSH library parses directly.
func generateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
