package biz

import (
	"context"
	"strings"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/auth"
	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"
	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"
	"github.com/GustavoAl5317/momentusi-sub000/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Timeline is one user-created page. The slug doubles as the public URL
// segment and equals the row's own id. EditToken is the secret capability
// handed out at creation; IsPublished flips only after a confirmed payment.
type Timeline struct {
	ID             string
	Slug           string
	Title          string
	Subtitle       string
	Theme          string
	Layout         string // vertical, horizontal
	PlanType       string // essential, complete
	IsPublished    bool
	IsPrivate      bool
	PasswordHash   string
	EditToken      string
	Palette        string // JSON color palette, optional
	ClosingMessage string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Moments []*Moment
}

// TimelineRepo is the data layer interface for timelines and their moments.
// A timeline exclusively owns its moments; updates replace the full set.
type TimelineRepo interface {
	CreateTimeline(ctx context.Context, t *Timeline) error
	GetTimelineByID(ctx context.Context, id string) (*Timeline, error)
	GetTimelineBySlug(ctx context.Context, slug string) (*Timeline, error)
	UpdateTimeline(ctx context.Context, t *Timeline) error
	SetPublished(ctx context.Context, id, planType string) error
	// DeleteUnpublishedBefore removes abandoned unpaid drafts created before
	// the cutoff. Moments cascade; payment rows are kept for accounting.
	DeleteUnpublishedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// TimelineLinks is the success-page polling payload.
type TimelineLinks struct {
	Published bool
	Slug      string
	PublicURL string
	EditURL   string
}

// TimelineUsecase holds timeline CRUD business logic.
type TimelineUsecase struct {
	repo   TimelineRepo
	config *conf.Bootstrap
	log    *log.Helper
}

func NewTimelineUsecase(repo TimelineRepo, config *conf.Bootstrap, logger log.Logger) *TimelineUsecase {
	return &TimelineUsecase{
		repo:   repo,
		config: config,
		log:    log.NewHelper(logger),
	}
}

// CreateTimeline creates an unpublished draft and mints its edit token.
// The slug is set to the row's own id.
func (uc *TimelineUsecase) CreateTimeline(ctx context.Context, t *Timeline, password string) (*Timeline, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, errors.BadRequest(errors.ErrCodeInvalidInput, "title is required")
	}
	if t.Layout == "" {
		t.Layout = constants.LayoutVertical
	}
	if t.Layout != constants.LayoutVertical && t.Layout != constants.LayoutHorizontal {
		return nil, errors.BadRequest(errors.ErrCodeInvalidInput, "unknown layout: %s", t.Layout)
	}
	if t.PlanType == "" {
		t.PlanType = constants.PlanEssential
	}
	if t.PlanType != constants.PlanEssential && t.PlanType != constants.PlanComplete {
		return nil, errors.BadRequest(errors.ErrCodeInvalidPlan, "unknown plan: %s", t.PlanType)
	}
	if err := ValidateMoments(t.PlanType, t.Moments); err != nil {
		return nil, err
	}

	if t.IsPrivate && password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, errors.Internal(errors.ErrCodeInvalidInput, "failed to hash password")
		}
		t.PasswordHash = hash
	}

	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.Slug = t.ID
	t.EditToken = auth.NewEditToken()
	t.IsPublished = false
	t.CreatedAt = now
	t.UpdatedAt = now
	normalizeMoments(t.ID, t.Moments)

	if err := uc.repo.CreateTimeline(ctx, t); err != nil {
		uc.log.Errorf("Failed to create timeline: %v", err)
		return nil, errors.Internal(errors.ErrCodeInvalidInput, "failed to create timeline")
	}

	uc.log.Infof("Created timeline %s (plan=%s, moments=%d)", t.ID, t.PlanType, len(t.Moments))
	return t, nil
}

// GetPublicTimeline fetches a published timeline by slug, applying the
// privacy gate. Secrets are stripped from the returned value.
func (uc *TimelineUsecase) GetPublicTimeline(ctx context.Context, slug, password string) (*Timeline, error) {
	t, err := uc.repo.GetTimelineBySlug(ctx, slug)
	if err != nil {
		uc.log.Errorf("Failed to get timeline by slug %s: %v", slug, err)
		return nil, errors.Internal(errors.ErrCodeTimelineNotFound, "failed to load timeline")
	}
	if t == nil || !t.IsPublished {
		return nil, errors.NotFound(errors.ErrCodeTimelineNotFound, "timeline not found")
	}

	if t.IsPrivate && t.PasswordHash != "" {
		if password == "" {
			return nil, errors.PasswordRequired()
		}
		if !auth.CheckPassword(t.PasswordHash, password) {
			return nil, errors.Forbidden(errors.ErrCodeWrongPassword, "wrong password")
		}
	}

	sanitized := *t
	sanitized.PasswordHash = ""
	sanitized.EditToken = ""
	return &sanitized, nil
}

// GetTimelineForEdit fetches the full timeline for its owner. A wrong token
// is indistinguishable from a missing timeline.
func (uc *TimelineUsecase) GetTimelineForEdit(ctx context.Context, id, token string) (*Timeline, error) {
	t, err := uc.repo.GetTimelineByID(ctx, id)
	if err != nil {
		uc.log.Errorf("Failed to get timeline %s: %v", id, err)
		return nil, errors.Internal(errors.ErrCodeTimelineNotFound, "failed to load timeline")
	}
	if t == nil || !auth.CheckEditToken(t.EditToken, token) {
		return nil, errors.NotFound(errors.ErrCodeInvalidEditToken, "timeline not found")
	}
	return t, nil
}

// UpdateTimeline replaces the timeline's editable fields and its full
// moment set. Publication state, slug, edit token and plan are owner-proof:
// they only change through the payment flow.
func (uc *TimelineUsecase) UpdateTimeline(ctx context.Context, id, token string, in *Timeline, password string) (*Timeline, error) {
	current, err := uc.GetTimelineForEdit(ctx, id, token)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.BadRequest(errors.ErrCodeInvalidInput, "title is required")
	}
	if in.Layout != "" && in.Layout != constants.LayoutVertical && in.Layout != constants.LayoutHorizontal {
		return nil, errors.BadRequest(errors.ErrCodeInvalidInput, "unknown layout: %s", in.Layout)
	}
	if err := ValidateMoments(current.PlanType, in.Moments); err != nil {
		return nil, err
	}

	current.Title = in.Title
	current.Subtitle = in.Subtitle
	if in.Theme != "" {
		current.Theme = in.Theme
	}
	if in.Layout != "" {
		current.Layout = in.Layout
	}
	current.Palette = in.Palette
	current.ClosingMessage = in.ClosingMessage
	current.IsPrivate = in.IsPrivate
	if !in.IsPrivate {
		current.PasswordHash = ""
	} else if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, errors.Internal(errors.ErrCodeInvalidInput, "failed to hash password")
		}
		current.PasswordHash = hash
	}
	current.Moments = in.Moments
	current.UpdatedAt = time.Now().UTC()
	normalizeMoments(current.ID, current.Moments)

	if err := uc.repo.UpdateTimeline(ctx, current); err != nil {
		uc.log.Errorf("Failed to update timeline %s: %v", id, err)
		return nil, errors.Internal(errors.ErrCodeInvalidInput, "failed to update timeline")
	}

	uc.log.Infof("Updated timeline %s (moments=%d)", id, len(current.Moments))
	return current, nil
}

// GetLinks returns the publication state plus shareable URLs for the
// success-page polling loop. The edit URL is only included when the caller
// proves ownership with the edit token.
func (uc *TimelineUsecase) GetLinks(ctx context.Context, id, token, origin, host string) (*TimelineLinks, error) {
	t, err := uc.repo.GetTimelineByID(ctx, id)
	if err != nil {
		uc.log.Errorf("Failed to get timeline %s: %v", id, err)
		return nil, errors.Internal(errors.ErrCodeTimelineNotFound, "failed to load timeline")
	}
	if t == nil {
		return nil, errors.NotFound(errors.ErrCodeTimelineNotFound, "timeline not found")
	}

	base := ResolveBaseURL(uc.config.App, origin, host)
	links := &TimelineLinks{
		Published: t.IsPublished,
		Slug:      t.Slug,
		PublicURL: base + "/timeline/" + t.Slug,
	}
	if auth.CheckEditToken(t.EditToken, token) {
		links.EditURL = base + "/edit/" + t.ID + "?token=" + t.EditToken
	}
	return links, nil
}
