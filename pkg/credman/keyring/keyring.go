// Package keyring stores packtgrab secrets (site password, solver key,
// cloud tokens) in the operating system's native keyring so they do not
// have to live in the plaintext credentials file.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned by Get when no secret is stored under the key.
var ErrSecretNotFound = errors.New("secret not found in keyring")

type Keyring struct {
	AppName string
}

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

func NewKeyring() *Keyring {
	return &Keyring{
		AppName: "packtgrab",
	}
}

func (k *Keyring) Set(key, value string) error {
	if value == "" {
		return fmt.Errorf("refusing to store empty secret for %q", key)
	}
	return keyringSet(k.AppName, key, value)
}

// Get returns the secret stored under key. A missing entry is reported as
// ErrSecretNotFound; any other keyring failure is returned wrapped.
func (k *Keyring) Get(key string) (string, error) {
	v, err := keyringGet(k.AppName, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %q: %w", key, err)
	}
	return v, nil
}

func (k *Keyring) Delete(key string) error {
	err := keyringDelete(k.AppName, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrSecretNotFound
	}
	return err
}
