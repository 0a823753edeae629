package settings

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/redis"
)

const cacheScope = "settings"

// Service reads platform settings through a Redis cache. Typed getters
// return the supplied default when the key is absent or unparsable.
type Service interface {
	Get(ctx context.Context, key string) (string, bool, error)
	GetString(ctx context.Context, key, fallback string) string
	GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal
	GetInt(ctx context.Context, key string, fallback int) int
	GetBool(ctx context.Context, key string, fallback bool) bool
	Set(ctx context.Context, key, value string) error
	List(ctx context.Context) ([]models.Setting, error)
}

type service struct {
	repo  Repository
	cache redis.CacheStore
	ttl   time.Duration
}

// NewService wires the settings provider. cache may be nil, in which
// case every read hits the database.
func NewService(repo Repository, cache redis.CacheStore, cfg config.SettingsConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings repository required")
	}
	return &service{repo: repo, cache: cache, ttl: cfg.CacheTTL}, nil
}

func (s *service) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.CacheKey(cacheScope, key)); err == nil {
			return cached, true, nil
		}
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading setting")
	}

	if s.cache != nil {
		// Cache write failures are invisible to callers.
		_ = s.cache.Set(ctx, s.cache.CacheKey(cacheScope, key), setting.Value, s.ttl)
	}
	return setting.Value, true, nil
}

func (s *service) GetString(ctx context.Context, key, fallback string) string {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	return value
}

func (s *service) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *service) GetInt(ctx context.Context, key string, fallback int) int {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *service) GetBool(ctx context.Context, key string, fallback bool) bool {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *service) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	setting := &models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving setting")
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, s.cache.CacheKey(cacheScope, key))
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]models.Setting, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing settings")
	}
	return list, nil
}
