package data

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"
	"github.com/GustavoAl5317/momentusi-sub000/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const nullCacheMarker = "null"

// timelineRepo implements biz.TimelineRepo over gorm + a redis read cache
// for the slug lookup, which is the hot path (every public page view).
type timelineRepo struct {
	data *Data
	log  *log.Helper
}

// NewTimelineRepo creates the timeline repository.
func NewTimelineRepo(data *Data, logger log.Logger) biz.TimelineRepo {
	return &timelineRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateTimeline inserts the timeline and its moments in one transaction.
func (r *timelineRepo) CreateTimeline(ctx context.Context, t *biz.Timeline) error {
	return r.data.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(timelineToModel(t)).Error; err != nil {
			r.log.Errorf("Failed to create timeline %s: %v", t.ID, err)
			return err
		}
		for _, m := range t.Moments {
			mm := momentToModel(m)
			if err := tx.Create(mm).Error; err != nil {
				r.log.Errorf("Failed to create moment for timeline %s: %v", t.ID, err)
				return err
			}
			m.ID = mm.ID
		}
		return nil
	})
}

// GetTimelineByID loads a timeline with its moments in stored order.
// Returns nil when the id is unknown.
func (r *timelineRepo) GetTimelineByID(ctx context.Context, id string) (*biz.Timeline, error) {
	var m model.Timeline
	err := r.data.DB(ctx).First(&m, "timeline_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.attachMoments(ctx, timelineToBiz(&m))
}

// GetTimelineBySlug loads a timeline by its public slug, via the cache.
// Misses are cached too, with a short TTL.
func (r *timelineRepo) GetTimelineBySlug(ctx context.Context, slug string) (*biz.Timeline, error) {
	if t, hit := r.cacheGet(ctx, slug); hit {
		return t, nil
	}

	var m model.Timeline
	err := r.data.DB(ctx).First(&m, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.cacheSet(ctx, slug, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t, err := r.attachMoments(ctx, timelineToBiz(&m))
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, slug, t)
	return t, nil
}

// UpdateTimeline saves the timeline fields and replaces the full moment set.
func (r *timelineRepo) UpdateTimeline(ctx context.Context, t *biz.Timeline) error {
	err := r.data.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(timelineToModel(t)).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Moment{}, "timeline_id = ?", t.ID).Error; err != nil {
			return err
		}
		for _, m := range t.Moments {
			mm := momentToModel(m)
			mm.ID = 0 // replaced set gets fresh rows
			if err := tx.Create(mm).Error; err != nil {
				return err
			}
			m.ID = mm.ID
		}
		return nil
	})
	if err != nil {
		r.log.Errorf("Failed to update timeline %s: %v", t.ID, err)
		return err
	}
	r.cacheInvalidate(ctx, t.Slug)
	return nil
}

// SetPublished flips the publication flag and records the paid plan.
func (r *timelineRepo) SetPublished(ctx context.Context, id, planType string) error {
	updates := map[string]interface{}{
		"is_published": true,
		"updated_at":   time.Now().UTC(),
	}
	if planType != "" {
		updates["plan_type"] = planType
	}
	if err := r.data.DB(ctx).Model(&model.Timeline{}).
		Where("timeline_id = ?", id).
		Updates(updates).Error; err != nil {
		r.log.Errorf("Failed to publish timeline %s: %v", id, err)
		return err
	}
	// slug equals the id
	r.cacheInvalidate(ctx, id)
	return nil
}

// DeleteUnpublishedBefore removes abandoned drafts and their moments.
// Payment rows are intentionally kept.
func (r *timelineRepo) DeleteUnpublishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var ids []string
	if err := r.data.DB(ctx).Model(&model.Timeline{}).
		Where("is_published = ? AND created_at < ?", false, cutoff).
		Pluck("timeline_id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := r.data.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Moment{}, "timeline_id IN ?", ids).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Timeline{}, "timeline_id IN ?", ids).Error
	})
	if err != nil {
		r.log.Errorf("Failed to delete %d abandoned drafts: %v", len(ids), err)
		return 0, err
	}
	for _, id := range ids {
		r.cacheInvalidate(ctx, id)
	}
	return len(ids), nil
}

func (r *timelineRepo) attachMoments(ctx context.Context, t *biz.Timeline) (*biz.Timeline, error) {
	var moments []model.Moment
	if err := r.data.DB(ctx).
		Where("timeline_id = ?", t.ID).
		Order("order_index ASC").
		Find(&moments).Error; err != nil {
		return nil, err
	}
	t.Moments = make([]*biz.Moment, len(moments))
	for i := range moments {
		t.Moments[i] = momentToBiz(&moments[i])
	}
	return t, nil
}

// -------- cache --------

func (r *timelineRepo) cacheKey(slug string) string {
	return constants.PublicTimelineCachePrefix + slug
}

func (r *timelineRepo) cacheGet(ctx context.Context, slug string) (*biz.Timeline, bool) {
	if r.data.rdb == nil {
		return nil, false
	}
	raw, err := r.data.rdb.Get(ctx, r.cacheKey(slug)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.log.Warnf("Cache read failed for %s: %v", slug, err)
		return nil, false
	}
	if raw == nullCacheMarker {
		return nil, true
	}
	var t biz.Timeline
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		r.log.Warnf("Cache entry for %s is corrupt, dropping: %v", slug, err)
		r.cacheInvalidate(ctx, slug)
		return nil, false
	}
	return &t, true
}

func (r *timelineRepo) cacheSet(ctx context.Context, slug string, t *biz.Timeline) {
	if r.data.rdb == nil {
		return
	}
	var (
		payload string
		ttl     time.Duration
	)
	if t == nil {
		payload = nullCacheMarker
		ttl = constants.NullCacheExpiration
	} else {
		raw, err := json.Marshal(t)
		if err != nil {
			return
		}
		payload = string(raw)
		ttl = constants.DefaultCacheExpiration +
			time.Duration(rand.Intn(constants.CacheRandomMaxSeconds))*time.Second
	}
	if err := r.data.rdb.Set(ctx, r.cacheKey(slug), payload, ttl).Err(); err != nil {
		r.log.Warnf("Cache write failed for %s: %v", slug, err)
	}
}

func (r *timelineRepo) cacheInvalidate(ctx context.Context, slug string) {
	if r.data.rdb == nil || slug == "" {
		return
	}
	if err := r.data.rdb.Del(ctx, r.cacheKey(slug)).Err(); err != nil {
		r.log.Warnf("Cache invalidation failed for %s: %v", slug, err)
	}
}

// -------- converters --------

func timelineToModel(t *biz.Timeline) *model.Timeline {
	return &model.Timeline{
		ID:             t.ID,
		Slug:           t.Slug,
		Title:          t.Title,
		Subtitle:       t.Subtitle,
		Theme:          t.Theme,
		Layout:         t.Layout,
		PlanType:       t.PlanType,
		IsPublished:    t.IsPublished,
		IsPrivate:      t.IsPrivate,
		PasswordHash:   t.PasswordHash,
		EditToken:      t.EditToken,
		Palette:        t.Palette,
		ClosingMessage: t.ClosingMessage,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func timelineToBiz(m *model.Timeline) *biz.Timeline {
	return &biz.Timeline{
		ID:             m.ID,
		Slug:           m.Slug,
		Title:          m.Title,
		Subtitle:       m.Subtitle,
		Theme:          m.Theme,
		Layout:         m.Layout,
		PlanType:       m.PlanType,
		IsPublished:    m.IsPublished,
		IsPrivate:      m.IsPrivate,
		PasswordHash:   m.PasswordHash,
		EditToken:      m.EditToken,
		Palette:        m.Palette,
		ClosingMessage: m.ClosingMessage,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func momentToModel(m *biz.Moment) *model.Moment {
	mm := &model.Moment{
		ID:          m.ID,
		TimelineID:  m.TimelineID,
		Date:        m.Date,
		Title:       m.Title,
		Description: m.Description,
		MusicURL:    m.MusicURL,
		OrderIndex:  m.OrderIndex,
	}
	urls := m.ImageURLs
	if len(urls) > 0 {
		mm.ImageURL1 = urls[0]
	}
	if len(urls) > 1 {
		mm.ImageURL2 = urls[1]
	}
	if len(urls) > 2 {
		mm.ImageURL3 = urls[2]
	}
	return mm
}

func momentToBiz(m *model.Moment) *biz.Moment {
	var urls []string
	for _, u := range []string{m.ImageURL1, m.ImageURL2, m.ImageURL3} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return &biz.Moment{
		ID:          m.ID,
		TimelineID:  m.TimelineID,
		Date:        m.Date,
		Title:       m.Title,
		Description: m.Description,
		ImageURLs:   urls,
		MusicURL:    m.MusicURL,
		OrderIndex:  m.OrderIndex,
	}
}
