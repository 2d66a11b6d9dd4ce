package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/recipe"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/cache"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// CachedRepository reads menu mappings through redis. Cache failures fall
// back to the wrapped repository.
type CachedRepository struct {
	next   recipe.Repository
	redis  *cache.RedisClient
	ttl    time.Duration
	logger logger.ZapLogger
}

func NewCachedRepository(next recipe.Repository, client *cache.RedisClient, ttl time.Duration, log logger.ZapLogger) *CachedRepository {
	return &CachedRepository{
		next:   next,
		redis:  client,
		ttl:    ttl,
		logger: log,
	}
}

func mappingKey(sellableID string) string {
	return "menu_mapping:" + sellableID
}

func (r *CachedRepository) GetBySellableID(ctx context.Context, sellableID string) (*model.MenuMapping, error) {
	raw, err := r.redis.Client.Get(ctx, mappingKey(sellableID)).Bytes()
	switch {
	case err == nil:
		mapping, err := decodeMapping(raw)
		if err == nil {
			return mapping, nil
		}
		r.logger.Warn("Discarding undecodable cached menu mapping", zap.String("sellable_id", sellableID), zap.Error(err))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("Menu mapping cache read failed", zap.String("sellable_id", sellableID), zap.Error(err))
	}

	mapping, err := r.next.GetBySellableID(ctx, sellableID)
	if err != nil || mapping == nil {
		return mapping, err
	}

	if raw, err := encodeMapping(mapping); err == nil {
		if err := r.redis.Client.Set(ctx, mappingKey(sellableID), raw, r.ttl).Err(); err != nil {
			r.logger.Warn("Menu mapping cache write failed", zap.String("sellable_id", sellableID), zap.Error(err))
		}
	}
	return mapping, nil
}

func (r *CachedRepository) ListSellableIDs(ctx context.Context) ([]string, error) {
	return r.next.ListSellableIDs(ctx)
}

func (r *CachedRepository) Upsert(ctx context.Context, mapping *model.MenuMapping) error {
	if err := r.next.Upsert(ctx, mapping); err != nil {
		return err
	}
	if err := r.redis.Client.Del(ctx, mappingKey(mapping.SellableID)).Err(); err != nil {
		r.logger.Warn("Menu mapping cache invalidation failed", zap.String("sellable_id", mapping.SellableID), zap.Error(err))
	}
	return nil
}

func encodeMapping(m *model.MenuMapping) ([]byte, error) {
	return msgpack.Marshal(m)
}

func decodeMapping(raw []byte) (*model.MenuMapping, error) {
	var m model.MenuMapping
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
