package ingest

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Credentials is one platform's key/value secret set, loaded from a
// dotenv-style file under the secrets directory.
type Credentials map[string]string

// LoadCredentials reads the named dotenv file from dir. A missing file is
// not an error: it yields an empty set, and the adapter reports itself as
// not configured.
func LoadCredentials(dir, name string) (Credentials, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Credentials{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	return Credentials(env), nil
}

// Get returns the value for key, or def when absent or empty.
func (c Credentials) Get(key, def string) string {
	if v := c[key]; v != "" {
		return v
	}
	return def
}

// Has reports whether every named key is present and non-empty.
func (c Credentials) Has(keys ...string) bool {
	for _, k := range keys {
		if c[k] == "" {
			return false
		}
	}
	return true
}
