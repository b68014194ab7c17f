package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// in-memory repo doubles used across the usecase tests

type fakeTimelineRepo struct {
	mu        sync.Mutex
	timelines map[string]*Timeline
}

func newFakeTimelineRepo() *fakeTimelineRepo {
	return &fakeTimelineRepo{timelines: make(map[string]*Timeline)}
}

func (r *fakeTimelineRepo) CreateTimeline(_ context.Context, t *Timeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.timelines[t.ID] = &cp
	return nil
}

func (r *fakeTimelineRepo) GetTimelineByID(_ context.Context, id string) (*Timeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timelines[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTimelineRepo) GetTimelineBySlug(_ context.Context, slug string) (*Timeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.timelines {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTimelineRepo) UpdateTimeline(_ context.Context, t *Timeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.timelines[t.ID]; !ok {
		return fmt.Errorf("timeline %s not found", t.ID)
	}
	cp := *t
	r.timelines[t.ID] = &cp
	return nil
}

func (r *fakeTimelineRepo) SetPublished(_ context.Context, id, planType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timelines[id]
	if !ok {
		return fmt.Errorf("timeline %s not found", id)
	}
	t.IsPublished = true
	t.PlanType = planType
	return nil
}

func (r *fakeTimelineRepo) DeleteUnpublishedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, t := range r.timelines {
		if !t.IsPublished && t.CreatedAt.Before(cutoff) {
			delete(r.timelines, id)
			n++
		}
	}
	return n, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	nextID   uint64
	payments []*Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{nextID: 1}
}

func (r *fakePaymentRepo) CreatePayment(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.payments = append(r.payments, &cp)
	return nil
}

func (r *fakePaymentRepo) GetLatestPaymentByTimeline(_ context.Context, timelineID string) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *Payment
	for _, p := range r.payments {
		if p.TimelineID != timelineID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) || (p.CreatedAt.Equal(latest.CreatedAt) && p.ID > latest.ID) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakePaymentRepo) GetPaymentByGatewayID(_ context.Context, gatewayID string) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GatewayID == gatewayID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) UpdatePayment(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.payments {
		if old.ID == p.ID {
			cp := *p
			r.payments[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("payment %d not found", p.ID)
}

func (r *fakePaymentRepo) HasSucceededPayment(_ context.Context, timelineID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.TimelineID == timelineID && p.Status == "succeeded" {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) ListStalePending(_ context.Context, cutoff time.Time, limit int) ([]*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Payment
	for _, p := range r.payments {
		if p.Status == "pending" && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) byID(id uint64) *Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			cp := *p
			return &cp
		}
	}
	return nil
}

type fakeGateway struct {
	preference    *Preference
	preferenceErr error
	payments      map[string]*GatewayPayment
	byReference   map[string]*GatewayPayment

	createCalls int
	lastRequest *PreferenceRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payments:    make(map[string]*GatewayPayment),
		byReference: make(map[string]*GatewayPayment),
	}
}

func (g *fakeGateway) CreatePreference(_ context.Context, req *PreferenceRequest) (*Preference, error) {
	g.createCalls++
	g.lastRequest = req
	if g.preferenceErr != nil {
		return nil, g.preferenceErr
	}
	return g.preference, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*GatewayPayment, error) {
	return g.payments[id], nil
}

func (g *fakeGateway) SearchPaymentByReference(_ context.Context, externalReference string) (*GatewayPayment, error) {
	return g.byReference[externalReference], nil
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (e *fakeEmailSender) SendPaymentConfirmation(_ context.Context, to, _, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return fmt.Errorf("smtp down")
	}
	e.sent = append(e.sent, to)
	return nil
}

// fakeTx runs the unit of work inline, no transactional semantics needed
// for the in-memory doubles.
type fakeTx struct{}

func (fakeTx) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testConfig() *conf.Bootstrap {
	return &conf.Bootstrap{
		Client: &conf.Client{
			MercadoPago: &conf.MercadoPago{AccessToken: "TEST-token"},
			Email:       &conf.Email{},
		},
		App: &conf.App{},
	}
}

func newTestPaymentUsecase(tr TimelineRepo, pr PaymentRepo, gw PaymentGateway, email EmailSender, cfg *conf.Bootstrap) *PaymentUsecase {
	if cfg == nil {
		cfg = testConfig()
	}
	return NewPaymentUsecase(tr, pr, gw, email, fakeTx{}, nil, cfg, log.NewStdLogger(discardWriter{}))
}

func newTestTimelineUsecase(tr TimelineRepo) *TimelineUsecase {
	return NewTimelineUsecase(tr, testConfig(), log.NewStdLogger(discardWriter{}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
