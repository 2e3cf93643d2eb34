package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultSecretsDir = "/run/secrets"

var errSecretMissing = errors.New("secret not configured")

// readSecret берёт секрет из переменной окружения (имя в верхнем регистре),
// иначе из файла Docker secrets.
func readSecret(dir, name string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(strings.ToUpper(name))); v != "" {
		return v, nil
	}

	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", errSecretMissing, name)
		}
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%w: secret file %s is empty", errSecretMissing, path)
	}
	return secret, nil
}
