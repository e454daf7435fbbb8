// Package keyring keeps the PostgreSQL connection string in the OS keyring
// so it never has to be written to config.toml.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "learnquest"
	account = "postgres_dsn"
)

var (
	// ErrNotFound is returned when no DSN is stored.
	ErrNotFound = errors.New("connection string not found in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be used.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// GetDSN returns the stored connection string.
func GetDSN() (string, error) {
	dsn, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return dsn, nil
}

// SetDSN stores the connection string.
func SetDSN(dsn string) error {
	if dsn == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(service, account, dsn); err != nil {
		return fmt.Errorf("store connection string in keyring: %w", err)
	}
	return nil
}

// DeleteDSN removes the stored connection string.
func DeleteDSN() error {
	err := keyring.Delete(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete connection string from keyring: %w", err)
	}
	return nil
}

// IsAvailable reports whether the OS keyring answers at all.
func IsAvailable() bool {
	_, err := keyring.Get(service, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
