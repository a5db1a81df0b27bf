// Package secrets resolves named parameters such as provider API keys.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
)

// EnvStore looks parameters up in the process environment.
type EnvStore struct {
	lookup func(string) (string, bool)
}

// NewEnvStore returns a store backed by os.LookupEnv.
func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

// Get returns the value of the parameter called name. A missing or blank
// parameter yields domain.ErrNotFound.
func (s *EnvStore) Get(name string) (string, error) {
	v, ok := s.lookup(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("parameter %q: %w", name, domain.ErrNotFound)
	}
	return strings.TrimSpace(v), nil
}
