package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/infra/database/models"
)

const searchCacheTTL = 30 * time.Second

// DirectoryRepository backs the flat user directory with Postgres and a
// memcached read-through cache on searches. The directory is outside
// the synchronization write path; stale search results are acceptable
// for the cache TTL.
type DirectoryRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

// NewDirectoryRepository wires the repository. mc may be nil, which
// disables the search cache.
func NewDirectoryRepository(db *gorm.DB, mc *memcache.Client) *DirectoryRepository {
	return &DirectoryRepository{db: db, mc: mc}
}

func (r *DirectoryRepository) Register(ctx context.Context, entry domain.DirectoryEntry) error {
	row := models.User{
		SafeEmail: string(entry.SafeEmail),
		Name:      entry.Name,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "safe_email"}},
		DoUpdates: clause.Assignments(map[string]any{"name": entry.Name}),
	}).Create(&row).Error
}

func (r *DirectoryRepository) Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error) {
	cacheKey := searchCacheKey(query)

	if r.mc != nil {
		if item, err := r.mc.Get(cacheKey); err == nil {
			var cached []domain.DirectoryEntry
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR safe_email LIKE ?", query+"%", string(domain.Normalize(query))+"%").
		Order("name").
		Limit(50).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.DirectoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.DirectoryEntry{
			Name:      row.Name,
			SafeEmail: domain.Identity(row.SafeEmail),
		})
	}

	if r.mc != nil {
		if raw, err := json.Marshal(entries); err == nil {
			_ = r.mc.Set(&memcache.Item{
				Key:        cacheKey,
				Value:      raw,
				Expiration: int32(searchCacheTTL / time.Second),
			})
		}
	}

	return entries, nil
}

// memcached keys must be short and free of whitespace.
func searchCacheKey(query string) string {
	q := strings.ReplaceAll(strings.ToLower(query), " ", "_")
	if len(q) > 200 {
		q = q[:200]
	}
	return "parley:directory:" + q
}
