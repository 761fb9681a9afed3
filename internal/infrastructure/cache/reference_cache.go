package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// ReferenceRepository serves tax and shipping lookups from the cache and
// falls back to the wrapped repository on a miss. Cache failures degrade to
// a direct lookup; they never fail the request.
type ReferenceRepository struct {
	inner domain.ReferenceRepository
	cache Cache
	ttl   time.Duration
}

func NewReferenceRepository(inner domain.ReferenceRepository, cache Cache, ttl time.Duration) *ReferenceRepository {
	return &ReferenceRepository{inner: inner, cache: cache, ttl: ttl}
}

func (r *ReferenceRepository) TaxByID(ctx context.Context, id int64) (*domain.Tax, error) {
	key := r.cache.GenerateKey("tax", strconv.FormatInt(id, 10))
	return readThrough(ctx, r, key, func() (*domain.Tax, error) {
		return r.inner.TaxByID(ctx, id)
	})
}

func (r *ReferenceRepository) ShipSettingByCountryOrDefault(ctx context.Context, country string) (*domain.ShipSetting, error) {
	// keyed exactly as the repository matches the country
	key := r.cache.GenerateKey("ship", country)
	return readThrough(ctx, r, key, func() (*domain.ShipSetting, error) {
		return r.inner.ShipSettingByCountryOrDefault(ctx, country)
	})
}

func readThrough[T any](ctx context.Context, r *ReferenceRepository, key string, load func() (*T, error)) (*T, error) {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "reference cache read failed", "key", key, "error", err)
	} else if raw != "" {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return &v, nil
		}
		slog.WarnContext(ctx, "reference cache entry unreadable", "key", key)
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := r.cache.Set(ctx, key, string(b), r.ttl); err != nil {
		slog.WarnContext(ctx, "reference cache write failed", "key", key, "error", err)
	}
	return v, nil
}
