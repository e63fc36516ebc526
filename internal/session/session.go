package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"
)

// TokenKey is the fixed name the bearer credential is stored under.
const TokenKey = "authToken"

// ErrTampered is returned when a sealed value fails authentication.
var ErrTampered = errors.New("sealed session value failed authentication")

// NewID returns a fresh browser session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Sealer encrypts stored credentials with NaCl secretbox.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the sealing key from secret. An empty secret returns a
// nil sealer, which stores values as plain text.
func NewSealer(secret string) *Sealer {
	if secret == "" {
		return nil
	}
	return &Sealer{key: blake2b.Sum256([]byte(secret))}
}

// Seal encrypts plaintext into a base64 string.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if s == nil {
		return plaintext, nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if s == nil {
		return sealed, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", ErrTampered
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", ErrTampered
	}
	return string(plain), nil
}

// Session is the token store of one browser session.
type Session struct {
	id     string
	store  Store
	sealer *Sealer
}

// Bind returns the session for browser session id.
func Bind(store Store, id string, sealer *Sealer) *Session {
	return &Session{id: id, store: store, sealer: sealer}
}

// ID returns the browser session identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) key(name string) string {
	return s.id + ":" + name
}

// Token returns the stored credential. A value that no longer opens is
// treated as absent.
func (s *Session) Token(ctx context.Context) (string, bool, error) {
	sealed, ok, err := s.store.Get(ctx, s.key(TokenKey))
	if err != nil {
		return "", false, fmt.Errorf("read session token: %w", err)
	}
	if !ok || sealed == "" {
		return "", false, nil
	}
	token, err := s.sealer.Open(sealed)
	if err != nil {
		return "", false, nil
	}
	return token, true, nil
}

// SetToken stores the credential; the last write wins.
func (s *Session) SetToken(ctx context.Context, token string) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key(TokenKey), sealed); err != nil {
		return fmt.Errorf("write session token: %w", err)
	}
	return nil
}
