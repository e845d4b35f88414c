package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/identity"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/logger"
	"github.com/noah-isme/ndvi-gateway/pkg/response"
)

const (
	// ContextIdentityKey stores the request scoped *identity.Provider.
	ContextIdentityKey = "identityProvider"
	// UserIDHeader lets non-browser callers pin the user id explicitly.
	UserIDHeader = "X-Client-User-ID"

	deviceCookieSuffix = "_device"
)

// IdentityConfig configures where the gateway keeps each browser's user id.
// With Redis set the cookie only carries an opaque device key.
type IdentityConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Redis      *redis.Client
}

// Identity resolves the client user id for every request, issuing it lazily,
// and exposes it on the gin context, the request context and the logs.
func Identity(cfg IdentityConfig, log *zap.Logger) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "ndvi_user_id"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 365 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		provider := identity.NewProvider(storeFor(c, cfg), log)
		c.Set(ContextIdentityKey, provider)

		if pinned := c.GetHeader(UserIDHeader); pinned != "" {
			if err := validation.ValidateUserID(pinned); err != nil {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, UserIDHeader+": "+err.Error()))
				c.Abort()
				return
			}
			BindUserID(c, pinned)
			c.Next()
			return
		}

		id, err := provider.GetUserID(c.Request.Context())
		if err != nil {
			log.Error("failed to resolve client user id", zap.Error(err))
			response.Error(c, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to resolve client identity"))
			c.Abort()
			return
		}
		BindUserID(c, id)
		c.Next()
	}
}

// BindUserID makes id the user id seen by downstream handlers.
func BindUserID(c *gin.Context, id string) {
	c.Set(logger.UserIDKey, id)
	c.Request = c.Request.WithContext(identity.WithUserID(c.Request.Context(), id))
}

// IdentityProvider returns the provider installed by Identity.
func IdentityProvider(c *gin.Context) *identity.Provider {
	if v, ok := c.Get(ContextIdentityKey); ok {
		if p, ok := v.(*identity.Provider); ok {
			return p
		}
	}
	return nil
}

func storeFor(c *gin.Context, cfg IdentityConfig) identity.Store {
	if cfg.Redis == nil {
		return &cookieStore{c: c, name: cfg.CookieName, ttl: cfg.TTL, secure: cfg.Secure}
	}
	device := &cookieStore{c: c, name: cfg.CookieName + deviceCookieSuffix, ttl: cfg.TTL, secure: cfg.Secure}
	key, err := device.Load(c.Request.Context())
	if err != nil {
		key = uuid.NewString()
		_ = device.Save(c.Request.Context(), key)
	}
	return identity.NewRedisStore(cfg.Redis, key)
}

// cookieStore keeps the id in a cookie, the server side counterpart of a
// browser storage key. Writes go to the response and are visible to later
// loads within the same request.
type cookieStore struct {
	c       *gin.Context
	name    string
	ttl     time.Duration
	secure  bool
	value   string
	written bool
}

func (s *cookieStore) Load(context.Context) (string, error) {
	if s.written {
		if s.value == "" {
			return "", identity.ErrNotFound
		}
		return s.value, nil
	}
	value, err := s.c.Cookie(s.name)
	if err != nil || strings.TrimSpace(value) == "" {
		return "", identity.ErrNotFound
	}
	return value, nil
}

func (s *cookieStore) Save(_ context.Context, id string) error {
	s.set(id, int(s.ttl.Seconds()))
	return nil
}

func (s *cookieStore) Delete(context.Context) error {
	s.set("", -1)
	return nil
}

func (s *cookieStore) set(value string, maxAge int) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(s.name, value, maxAge, "/", "", s.secure, true)
	s.value = value
	s.written = true
}
