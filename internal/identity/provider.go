// Package identity issues the unauthenticated client user id that scopes a
// device's analyses on the NDVI backend.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// AnonymousUserID is returned when no persistent store is available. It
	// is never persisted.
	AnonymousUserID = "user_anonymous"

	idPrefix       = "user_"
	randomFragment = 9
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// ErrNotFound is returned by a Store that holds no id.
var ErrNotFound = errors.New("identity: no stored user id")

// Store persists a single user id.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
	Delete(ctx context.Context) error
}

// Provider hands out the user id, creating it lazily on first use.
type Provider struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewProvider wraps store. A nil store models an environment without
// persistent storage.
func NewProvider(store Store, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{store: store, now: time.Now, logger: logger}
}

// GetUserID returns the stored id, generating and persisting one if absent.
func (p *Provider) GetUserID(ctx context.Context) (string, error) {
	if p == nil || p.store == nil {
		return AnonymousUserID, nil
	}
	id, err := p.store.Load(ctx)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("load user id: %w", err)
	}
	id, err = p.generate()
	if err != nil {
		return "", err
	}
	if err := p.store.Save(ctx, id); err != nil {
		return "", fmt.Errorf("persist user id: %w", err)
	}
	p.logger.Debug("generated client user id", zap.String("user_id", id))
	return id, nil
}

// SetUserID overwrites the stored id.
func (p *Provider) SetUserID(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("identity: user id must not be empty")
	}
	if p == nil || p.store == nil {
		return errors.New("identity: no persistent store configured")
	}
	return p.store.Save(ctx, id)
}

// ClearUserData forgets the stored id; the next GetUserID creates a new one.
func (p *Provider) ClearUserData(ctx context.Context) error {
	if p == nil || p.store == nil {
		return nil
	}
	if err := p.store.Delete(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear user id: %w", err)
	}
	return nil
}

// Generate synthesizes "user_<9 base-36 chars>_<unix millis>".
func Generate(now time.Time) (string, error) {
	fragment := make([]byte, randomFragment)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range fragment {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate user id: %w", err)
		}
		fragment[i] = base36Alphabet[n.Int64()]
	}
	return idPrefix + string(fragment) + "_" + strconv.FormatInt(now.UnixMilli(), 10), nil
}

func (p *Provider) generate() (string, error) {
	return Generate(p.now())
}
