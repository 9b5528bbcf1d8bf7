// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package llmclient

import (
	"fmt"

	"github.com/awnumar/memguard"
)

// Secret holds a provider API key in a locked, wiped-on-close memory
// buffer rather than a plain Go string, following the zero-value-logging
// posture of the reference SecretsManager — adapted here to a single
// in-process buffer per provider since this package has no multi-backend
// secret store to fall back through.
type Secret struct {
	enclave *memguard.Enclave
}

// NewSecret copies key into a locked buffer and returns a handle. The
// caller's copy of key is not altered; zero it out independently if it
// originated from an untrusted mutable buffer.
func NewSecret(key string) *Secret {
	if key == "" {
		return &Secret{}
	}
	buf := memguard.NewBufferFromBytes([]byte(key))
	return &Secret{enclave: buf.Seal()}
}

// String never includes the key value; Secret must never be logged via
// %v/%s without this guard being the thing that's printed.
func (s *Secret) String() string {
	return "<redacted>"
}

// Reveal decrypts the buffer for the duration of the callback fn and
// destroys the decrypted copy afterward. Returns an error if the secret is
// empty (a misconfigured provider) or the enclave cannot be opened.
func (s *Secret) Reveal(fn func(key string) error) error {
	if s == nil || s.enclave == nil {
		return fmt.Errorf("llmclient: secret not configured")
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return fmt.Errorf("llmclient: open secret: %w", err)
	}
	defer buf.Destroy()
	return fn(string(buf.Bytes()))
}
