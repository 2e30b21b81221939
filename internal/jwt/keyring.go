package jwt

import (
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// Key is an HMAC secret addressed by its kid header value.
type Key struct {
	ID     string
	Secret []byte
}

// Keyring holds the key used for signing and any retired keys that are
// still accepted for verification.
type Keyring struct {
	algorithm jose.SignatureAlgorithm
	active    Key
	byID      map[string]Key
}

var minKeySize = map[jose.SignatureAlgorithm]int{
	jose.HS256: 32,
	jose.HS384: 48,
	jose.HS512: 64,
}

// NewKeyring validates the keys against the algorithm.
func NewKeyring(algorithm string, active Key, previous ...Key) (*Keyring, error) {
	alg := jose.SignatureAlgorithm(algorithm)
	size, ok := minKeySize[alg]
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if active.ID == "" {
		return nil, errors.New("signing key id is required")
	}

	ring := &Keyring{algorithm: alg, active: active, byID: make(map[string]Key, len(previous)+1)}
	for _, key := range append([]Key{active}, previous...) {
		if len(key.Secret) < size {
			return nil, fmt.Errorf("key %q: %s requires a secret of at least %d bytes", key.ID, alg, size)
		}
		if _, dup := ring.byID[key.ID]; dup {
			return nil, fmt.Errorf("duplicate key id %q", key.ID)
		}
		ring.byID[key.ID] = key
	}
	return ring, nil
}

// Algorithm returns the signature algorithm shared by every key.
func (r *Keyring) Algorithm() jose.SignatureAlgorithm {
	return r.algorithm
}

// Active returns the signing key.
func (r *Keyring) Active() Key {
	return r.active
}

// Lookup resolves a kid. An empty kid resolves to the active key.
func (r *Keyring) Lookup(kid string) (Key, bool) {
	if kid == "" {
		return r.active, true
	}
	key, ok := r.byID[kid]
	return key, ok
}
