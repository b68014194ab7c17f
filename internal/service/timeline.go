package service

import (
	"context"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// TimelineService maps the JSON API onto the biz usecases.
type TimelineService struct {
	timelines *biz.TimelineUsecase
	payments  *biz.PaymentUsecase
	log       *log.Helper
}

func NewTimelineService(timelines *biz.TimelineUsecase, payments *biz.PaymentUsecase, logger log.Logger) *TimelineService {
	return &TimelineService{
		timelines: timelines,
		payments:  payments,
		log:       log.NewHelper(logger),
	}
}

// -------- wire types --------

type MomentPayload struct {
	ID          uint64   `json:"id,omitempty"`
	Date        string   `json:"date"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	MusicURL    string   `json:"musicUrl,omitempty"`
	OrderIndex  int      `json:"orderIndex"`
}

type CreateTimelineRequest struct {
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle,omitempty"`
	Theme          string           `json:"theme,omitempty"`
	Layout         string           `json:"layout,omitempty"`
	Plan           string           `json:"plan,omitempty"`
	IsPrivate      bool             `json:"isPrivate,omitempty"`
	Password       string           `json:"password,omitempty"`
	Palette        string           `json:"palette,omitempty"`
	ClosingMessage string           `json:"closingMessage,omitempty"`
	Moments        []*MomentPayload `json:"moments,omitempty"`
}

type CreateTimelineReply struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	EditToken string `json:"editToken"`
}

type UpdateTimelineRequest struct {
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle,omitempty"`
	Theme          string           `json:"theme,omitempty"`
	Layout         string           `json:"layout,omitempty"`
	IsPrivate      bool             `json:"isPrivate,omitempty"`
	Password       string           `json:"password,omitempty"`
	Palette        string           `json:"palette,omitempty"`
	ClosingMessage string           `json:"closingMessage,omitempty"`
	Moments        []*MomentPayload `json:"moments,omitempty"`
}

// TimelineReply is the public/edit timeline JSON. password_hash and
// edit_token never appear here; the edit fetch returns the token through
// EditToken explicitly.
type TimelineReply struct {
	ID             string           `json:"id"`
	Slug           string           `json:"slug"`
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle,omitempty"`
	Theme          string           `json:"theme,omitempty"`
	Layout         string           `json:"layout"`
	Plan           string           `json:"plan"`
	IsPublished    bool             `json:"isPublished"`
	IsPrivate      bool             `json:"isPrivate"`
	Palette        string           `json:"palette,omitempty"`
	ClosingMessage string           `json:"closingMessage,omitempty"`
	Moments        []*MomentPayload `json:"moments"`
	EditToken      string           `json:"editToken,omitempty"`
}

type CheckoutRequest struct {
	TimelineID string `json:"timelineId"`
	Plan       string `json:"plan"`
	Email      string `json:"email"`
}

type CheckoutReply struct {
	PreferenceID     string `json:"preferenceId"`
	InitPoint        string `json:"initPoint"`
	SandboxInitPoint string `json:"sandboxInitPoint"`
	CheckoutURL      string `json:"checkoutUrl"`
}

type WebhookRequest struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		ExternalReference string `json:"external_reference"`
	} `json:"data"`
}

type WebhookReply struct {
	Received bool `json:"received"`
}

type SyncPaymentReply struct {
	Success bool `json:"success"`
	Updated bool `json:"updated"`
	Payment struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		MercadoPagoStatus string `json:"mercado_pago_status"`
	} `json:"payment"`
}

type PublishReply struct {
	Slug string `json:"slug"`
}

type LinksReply struct {
	Published bool   `json:"published"`
	Slug      string `json:"slug"`
	PublicURL string `json:"publicUrl"`
	EditURL   string `json:"editUrl,omitempty"`
}

type MaintenanceReply struct {
	Checked int `json:"checked,omitempty"`
	Updated int `json:"updated,omitempty"`
	Removed int `json:"removed,omitempty"`
}

// -------- handlers --------

func (s *TimelineService) CreateTimeline(ctx context.Context, req *CreateTimelineRequest) (*CreateTimelineReply, error) {
	moments, err := momentsToBiz(req.Moments)
	if err != nil {
		return nil, err
	}
	t, err := s.timelines.CreateTimeline(ctx, &biz.Timeline{
		Title:          req.Title,
		Subtitle:       req.Subtitle,
		Theme:          req.Theme,
		Layout:         req.Layout,
		PlanType:       req.Plan,
		IsPrivate:      req.IsPrivate,
		Palette:        req.Palette,
		ClosingMessage: req.ClosingMessage,
		Moments:        moments,
	}, req.Password)
	if err != nil {
		return nil, err
	}
	return &CreateTimelineReply{ID: t.ID, Slug: t.Slug, EditToken: t.EditToken}, nil
}

func (s *TimelineService) GetPublicTimeline(ctx context.Context, slug, password string) (*TimelineReply, error) {
	t, err := s.timelines.GetPublicTimeline(ctx, slug, password)
	if err != nil {
		return nil, err
	}
	return timelineToReply(t, false), nil
}

func (s *TimelineService) GetTimelineForEdit(ctx context.Context, id, token string) (*TimelineReply, error) {
	t, err := s.timelines.GetTimelineForEdit(ctx, id, token)
	if err != nil {
		return nil, err
	}
	return timelineToReply(t, true), nil
}

func (s *TimelineService) UpdateTimeline(ctx context.Context, id, token string, req *UpdateTimelineRequest) (*TimelineReply, error) {
	moments, err := momentsToBiz(req.Moments)
	if err != nil {
		return nil, err
	}
	t, err := s.timelines.UpdateTimeline(ctx, id, token, &biz.Timeline{
		Title:          req.Title,
		Subtitle:       req.Subtitle,
		Theme:          req.Theme,
		Layout:         req.Layout,
		IsPrivate:      req.IsPrivate,
		Palette:        req.Palette,
		ClosingMessage: req.ClosingMessage,
		Moments:        moments,
	}, req.Password)
	if err != nil {
		return nil, err
	}
	return timelineToReply(t, true), nil
}

func (s *TimelineService) CreateCheckout(ctx context.Context, req *CheckoutRequest, origin, host string) (*CheckoutReply, error) {
	res, err := s.payments.CreateCheckout(ctx, req.TimelineID, req.Plan, req.Email, origin, host)
	if err != nil {
		return nil, err
	}
	return &CheckoutReply{
		PreferenceID:     res.PreferenceID,
		InitPoint:        res.InitPoint,
		SandboxInitPoint: res.SandboxInitPoint,
		CheckoutURL:      res.CheckoutURL,
	}, nil
}

// HandleWebhook acknowledges every notification with 200 regardless of
// internal outcome: a non-2xx answer would trigger the gateway's
// redelivery storm. Errors are only logged.
func (s *TimelineService) HandleWebhook(ctx context.Context, req *WebhookRequest) *WebhookReply {
	err := s.payments.HandleWebhook(ctx, &biz.WebhookNotification{
		Type:              req.Type,
		Action:            req.Action,
		DataID:            req.Data.ID,
		Status:            req.Data.Status,
		ExternalReference: req.Data.ExternalReference,
	})
	if err != nil {
		s.log.Errorf("Webhook processing failed (acknowledged anyway): %v", err)
	}
	return &WebhookReply{Received: true}
}

func (s *TimelineService) SyncPayment(ctx context.Context, timelineID string) (*SyncPaymentReply, error) {
	res, err := s.payments.SyncPayment(ctx, timelineID)
	if err != nil {
		return nil, err
	}
	reply := &SyncPaymentReply{Success: true, Updated: res.Updated}
	reply.Payment.ID = res.PaymentID
	reply.Payment.Status = res.Status
	reply.Payment.MercadoPagoStatus = res.GatewayStatus
	return reply, nil
}

func (s *TimelineService) PublishTimeline(ctx context.Context, timelineID string) (*PublishReply, error) {
	slug, err := s.payments.Publish(ctx, timelineID)
	if err != nil {
		return nil, err
	}
	return &PublishReply{Slug: slug}, nil
}

func (s *TimelineService) GetLinks(ctx context.Context, id, token, origin, host string) (*LinksReply, error) {
	links, err := s.timelines.GetLinks(ctx, id, token, origin, host)
	if err != nil {
		return nil, err
	}
	return &LinksReply{
		Published: links.Published,
		Slug:      links.Slug,
		PublicURL: links.PublicURL,
		EditURL:   links.EditURL,
	}, nil
}

// SweepPayments backs the internal cron endpoint.
func (s *TimelineService) SweepPayments(ctx context.Context) (*MaintenanceReply, error) {
	checked, updated, err := s.payments.SweepPendingPayments(ctx)
	if err != nil {
		return nil, errors.Internal(errors.ErrCodeGatewayUnavailable, "sweep failed: %v", err)
	}
	return &MaintenanceReply{Checked: checked, Updated: updated}, nil
}

// CleanupDrafts backs the internal cron endpoint.
func (s *TimelineService) CleanupDrafts(ctx context.Context) (*MaintenanceReply, error) {
	removed, err := s.payments.CleanupAbandonedDrafts(ctx)
	if err != nil {
		return nil, errors.Internal(errors.ErrCodeGatewayUnavailable, "cleanup failed: %v", err)
	}
	return &MaintenanceReply{Removed: removed}, nil
}

// -------- converters --------

func momentsToBiz(payloads []*MomentPayload) ([]*biz.Moment, error) {
	moments := make([]*biz.Moment, len(payloads))
	for i, p := range payloads {
		date, err := parseDate(p.Date)
		if err != nil {
			return nil, errors.BadRequest(errors.ErrCodeInvalidInput, "invalid moment date %q", p.Date)
		}
		moments[i] = &biz.Moment{
			ID:          p.ID,
			Date:        date,
			Title:       p.Title,
			Description: p.Description,
			ImageURLs:   p.ImageURLs,
			MusicURL:    p.MusicURL,
			OrderIndex:  p.OrderIndex,
		}
	}
	return moments, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func timelineToReply(t *biz.Timeline, includeToken bool) *TimelineReply {
	reply := &TimelineReply{
		ID:             t.ID,
		Slug:           t.Slug,
		Title:          t.Title,
		Subtitle:       t.Subtitle,
		Theme:          t.Theme,
		Layout:         t.Layout,
		Plan:           t.PlanType,
		IsPublished:    t.IsPublished,
		IsPrivate:      t.IsPrivate,
		Palette:        t.Palette,
		ClosingMessage: t.ClosingMessage,
		Moments:        make([]*MomentPayload, len(t.Moments)),
	}
	if includeToken {
		reply.EditToken = t.EditToken
	}
	for i, m := range t.Moments {
		reply.Moments[i] = &MomentPayload{
			ID:          m.ID,
			Date:        m.Date.Format("2006-01-02"),
			Title:       m.Title,
			Description: m.Description,
			ImageURLs:   m.ImageURLs,
			MusicURL:    m.MusicURL,
			OrderIndex:  m.OrderIndex,
		}
	}
	return reply
}
