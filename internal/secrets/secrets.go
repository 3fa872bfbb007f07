// Package secrets locates credential files mounted into the container and
// decodes the GoCardless user secrets they hold.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrDirNotFound indicates the secrets directory is missing.
	ErrDirNotFound = errors.New("secrets dir does not exist")

	// ErrAmbiguous indicates the directory does not hold exactly one JSON file.
	ErrAmbiguous = errors.New("expected exactly 1 .json")

	// ErrIncomplete indicates the secrets file lacks an id or key.
	ErrIncomplete = errors.New("could not find secret_id/secret_key")
)

// FindSingleJSON returns the only *.json file (suffix matched case-insensitively) in dir.
// Symlinks to regular files count; a file named just ".json" does not.
func FindSingleJSON(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return "", fmt.Errorf("reading secrets dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, ".json") || name == ext {
			continue
		}
		if !e.Type().IsRegular() {
			// Mounted secret volumes expose keys as symlinks; follow them.
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) != 1 {
		return "", fmt.Errorf("%w in %s, found %d: %v", ErrAmbiguous, dir, len(names), names)
	}
	return filepath.Join(dir, names[0]), nil
}

// UserSecrets are the GoCardless Bank Account Data user credentials.
type UserSecrets struct {
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
}

// Accepted spellings, first non-empty wins.
var (
	secretIDKeys  = []string{"secret_id", "secretId", "SECRET_ID", "id"}
	secretKeyKeys = []string{"secret_key", "secretKey", "SECRET_KEY", "key"}
)

// LoadUserSecrets reads the single JSON file in dir and extracts the user secrets.
func LoadUserSecrets(dir string) (UserSecrets, error) {
	path, err := FindSingleJSON(dir)
	if err != nil {
		return UserSecrets{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return UserSecrets{}, fmt.Errorf("reading secrets file: %w", err)
	}
	return ParseUserSecrets(data, path)
}

// ParseUserSecrets decodes user secrets from raw JSON. source names the data in errors.
func ParseUserSecrets(data []byte, source string) (UserSecrets, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return UserSecrets{}, fmt.Errorf("parsing %s: %w", source, err)
	}

	canonical := map[string]any{
		"secret_id":  firstPresent(raw, secretIDKeys),
		"secret_key": firstPresent(raw, secretKeyKeys),
	}

	var s UserSecrets
	if err := mapstructure.WeakDecode(canonical, &s); err != nil {
		return UserSecrets{}, fmt.Errorf("decoding %s: %w", source, err)
	}
	if s.SecretID == "" || s.SecretKey == "" {
		return UserSecrets{}, fmt.Errorf("%w in %s", ErrIncomplete, source)
	}
	return s, nil
}

// firstPresent returns the first value under keys that is neither nil,
// false, zero nor an empty string.
func firstPresent(raw map[string]any, keys []string) any {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return v
			}
		case bool:
			if v {
				return v
			}
		case float64:
			if v != 0 {
				return v
			}
		default:
			return v
		}
	}
	return nil
}
