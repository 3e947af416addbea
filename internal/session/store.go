package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/dropDatabas3/meshconsole/internal/auth"
	"github.com/dropDatabas3/meshconsole/internal/cache"
)

// Store persiste la sesión entre cargas. El controller lo lee al montar
// para decidir la etapa inicial.
type Store interface {
	Load(ctx context.Context) (*auth.Session, error)
	Save(ctx context.Context, s auth.Session) error
	Clear(ctx context.Context) error
}

const sessionKey = "login_session"

var errSealedPayload = errors.New("session: cannot open sealed payload")

// CacheStore guarda la sesión como JSON en un cache.Client, sellada con
// secretbox si hay key.
type CacheStore struct {
	c   cache.Client
	ttl time.Duration
	key *[32]byte
}

func NewCacheStore(c cache.Client, ttl time.Duration, sealKey *[32]byte) *CacheStore {
	return &CacheStore{c: c, ttl: ttl, key: sealKey}
}

// Load devuelve nil, nil si no hay sesión guardada.
func (s *CacheStore) Load(ctx context.Context) (*auth.Session, error) {
	raw, err := s.c.Get(ctx, sessionKey)
	if cache.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	b, err := s.open(raw)
	if err != nil {
		return nil, err
	}
	var out auth.Session
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return &out, nil
}

func (s *CacheStore) Save(ctx context.Context, sess auth.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	payload, err := s.seal(b)
	if err != nil {
		return err
	}
	if err := s.c.Set(ctx, sessionKey, payload, s.ttl); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *CacheStore) Clear(ctx context.Context) error {
	return s.c.Delete(ctx, sessionKey)
}

// formato sellado: base64(nonce(24) || secretbox)
func (s *CacheStore) seal(b []byte) (string, error) {
	if s.key == nil {
		return string(b), nil
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("session: nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], b, &nonce, s.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *CacheStore) open(raw string) ([]byte, error) {
	if s.key == nil {
		return []byte(raw), nil
	}
	box, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(box) < 24 {
		return nil, errSealedPayload
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	b, ok := secretbox.Open(nil, box[24:], &nonce, s.key)
	if !ok {
		return nil, errSealedPayload
	}
	return b, nil
}
