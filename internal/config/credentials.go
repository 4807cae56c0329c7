package config

import (
	"fmt"
	"os"
	"strings"

	"photobak/internal/photobak"
)

// Credentials holds the credential tokens loaded once at process start.
// It is passed explicitly to whatever needs a token.
type Credentials struct {
	tokens map[string]string
}

// LoadCredentials reads inline tokens and token files. An inline token wins
// over a file for the same backend. A configured file that cannot be read is
// an error.
func LoadCredentials(cfg CredentialsConfig) (*Credentials, error) {
	tokens := make(map[string]string, len(cfg.Tokens)+len(cfg.TokenFiles))

	for name, file := range cfg.TokenFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: reading %s token file: %v", photobak.ErrConfiguration, name, err)
		}
		if token := strings.TrimSpace(string(data)); token != "" {
			tokens[name] = token
		}
	}
	for name, token := range cfg.Tokens {
		if token = strings.TrimSpace(token); token != "" {
			tokens[name] = token
		}
	}

	return &Credentials{tokens: tokens}, nil
}

// NewCredentials creates Credentials from a fixed map. Useful in tests.
func NewCredentials(tokens map[string]string) *Credentials {
	c := &Credentials{tokens: make(map[string]string, len(tokens))}
	for k, v := range tokens {
		c.tokens[k] = v
	}
	return c
}

// Token returns the token for a backend, or an ErrConfiguration error when
// none was loaded.
func (c *Credentials) Token(name string) (string, error) {
	if c != nil {
		if token, ok := c.tokens[name]; ok {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w: no credential for %q", photobak.ErrConfiguration, name)
}

// Has reports whether a token for name was loaded.
func (c *Credentials) Has(name string) bool {
	_, err := c.Token(name)
	return err == nil
}
