package biz

import (
	"context"
	"net"
	"net/mail"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"
	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"
	"github.com/GustavoAl5317/momentusi-sub000/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// Payment is one attempt to pay for publishing a timeline. GatewayID holds
// the checkout preference id until the real payment id is learned from a
// webhook or sync (see GatewayRef). Multiple rows per timeline are allowed
// (retries); the most recent one is authoritative.
type Payment struct {
	ID         uint64
	TimelineID string
	GatewayID  string
	Plan       string
	Amount     int64 // minor currency units (centavos)
	Status     string
	PayerEmail string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentRepo is the data layer interface for payment rows.
type PaymentRepo interface {
	CreatePayment(ctx context.Context, p *Payment) error
	// GetLatestPaymentByTimeline returns the most recent payment for a
	// timeline, or nil when none exists.
	GetLatestPaymentByTimeline(ctx context.Context, timelineID string) (*Payment, error)
	GetPaymentByGatewayID(ctx context.Context, gatewayID string) (*Payment, error)
	UpdatePayment(ctx context.Context, p *Payment) error
	HasSucceededPayment(ctx context.Context, timelineID string) (bool, error)
	// ListStalePending returns pending payments created before the cutoff,
	// oldest first, for the reconciliation sweeper.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*Payment, error)
}

// Transaction wraps a multi-statement unit of work (see data.Data.Exec).
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// PreferenceRequest carries everything the gateway needs to open a checkout.
type PreferenceRequest struct {
	TimelineID      string
	Plan            string
	Title           string
	Amount          int64 // minor units
	PayerEmail      string
	SuccessURL      string
	FailureURL      string
	PendingURL      string
	NotificationURL string // empty omits the webhook callback
}

// Preference is the gateway's created checkout.
type Preference struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
}

// GatewayPayment is the gateway's authoritative view of a payment.
type GatewayPayment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	PayerEmail        string
}

// PaymentGateway is the anti-corruption interface over Mercado Pago.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, id string) (*GatewayPayment, error)
	// SearchPaymentByReference finds the newest payment whose
	// external_reference matches, or nil when the gateway has none yet.
	SearchPaymentByReference(ctx context.Context, externalReference string) (*GatewayPayment, error)
}

// EmailSender delivers the post-payment confirmation email. Best effort:
// callers log failures and move on.
type EmailSender interface {
	SendPaymentConfirmation(ctx context.Context, to, publicURL, editURL string) error
}

// CheckoutResult is the checkout initiator's reply.
type CheckoutResult struct {
	PreferenceID     string
	InitPoint        string
	SandboxInitPoint string
	CheckoutURL      string
}

// PaymentUsecase owns the checkout, webhook, sync, publish and sweep flows.
type PaymentUsecase struct {
	timelineRepo TimelineRepo
	paymentRepo  PaymentRepo
	gateway      PaymentGateway
	email        EmailSender
	tm           Transaction
	rs           *redsync.Redsync
	config       *conf.Bootstrap
	log          *log.Helper
}

func NewPaymentUsecase(
	timelineRepo TimelineRepo,
	paymentRepo PaymentRepo,
	gateway PaymentGateway,
	email EmailSender,
	tm Transaction,
	rs *redsync.Redsync,
	config *conf.Bootstrap,
	logger log.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		timelineRepo: timelineRepo,
		paymentRepo:  paymentRepo,
		gateway:      gateway,
		email:        email,
		tm:           tm,
		rs:           rs,
		config:       config,
		log:          log.NewHelper(logger),
	}
}

// PlanAmount returns the one-time price of a plan in minor units.
func PlanAmount(plan string) (int64, bool) {
	switch plan {
	case constants.PlanEssential:
		return constants.PlanEssentialAmountCents, true
	case constants.PlanComplete:
		return constants.PlanCompleteAmountCents, true
	}
	return 0, false
}

// CreateCheckout builds a gateway preference for publishing a timeline and
// persists a pending payment row holding the preference id as placeholder.
func (uc *PaymentUsecase) CreateCheckout(ctx context.Context, timelineID, plan, email, origin, host string) (*CheckoutResult, error) {
	if timelineID == "" {
		return nil, errors.BadRequest(errors.ErrCodeInvalidInput, "timelineId is required")
	}
	amount, ok := PlanAmount(plan)
	if !ok {
		return nil, errors.BadRequest(errors.ErrCodeInvalidPlan, "unknown plan: %s", plan)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.BadRequest(errors.ErrCodeInvalidEmail, "invalid email address")
	}

	t, err := uc.timelineRepo.GetTimelineByID(ctx, timelineID)
	if err != nil {
		uc.log.Errorf("Failed to load timeline %s: %v", timelineID, err)
		return nil, errors.Internal(errors.ErrCodeTimelineNotFound, "failed to load timeline")
	}
	if t == nil {
		return nil, errors.NotFound(errors.ErrCodeTimelineNotFound, "timeline not found")
	}

	baseURL := ResolveBaseURL(uc.config.App, origin, host)
	loopback := IsLoopbackURL(baseURL)
	if loopback && !uc.config.Client.MercadoPago.IsSandbox() {
		// the gateway rejects loopback callback URLs on production credentials
		return nil, errors.BadRequest(errors.ErrCodeLoopbackBaseURL,
			"cannot use a loopback base URL (%s) with production credentials", baseURL)
	}

	notificationURL := ""
	if !loopback {
		webhookBase := baseURL
		if uc.config.App.WebhookBaseUrl != "" {
			webhookBase = strings.TrimRight(uc.config.App.WebhookBaseUrl, "/")
		}
		notificationURL = webhookBase + "/api/v1/webhooks/mercadopago"
	}

	title := "Momentusi - " + plan
	if t.Title != "" {
		title = t.Title + " (" + plan + ")"
	}
	pref, err := uc.gateway.CreatePreference(ctx, &PreferenceRequest{
		TimelineID:      timelineID,
		Plan:            plan,
		Title:           title,
		Amount:          amount,
		PayerEmail:      email,
		SuccessURL:      baseURL + "/payment/success?timeline=" + timelineID,
		FailureURL:      baseURL + "/payment/failure?timeline=" + timelineID,
		PendingURL:      baseURL + "/payment/pending?timeline=" + timelineID,
		NotificationURL: notificationURL,
	})
	if err != nil {
		uc.log.Errorf("Failed to create preference for timeline %s: %v", timelineID, err)
		return nil, errors.Internal(errors.ErrCodePreferenceFailed, "gateway preference creation failed: %v", err)
	}
	if pref.ID == "" || (pref.InitPoint == "" && pref.SandboxInitPoint == "") {
		return nil, errors.Internal(errors.ErrCodePreferenceFailed, "gateway returned no checkout URL")
	}

	now := time.Now().UTC()
	p := &Payment{
		TimelineID: timelineID,
		GatewayID:  pref.ID, // placeholder until the real payment id is known
		Plan:       plan,
		Amount:     amount,
		Status:     constants.PaymentStatusPending,
		PayerEmail: email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.paymentRepo.CreatePayment(ctx, p); err != nil {
		uc.log.Errorf("Failed to persist payment for timeline %s: %v", timelineID, err)
		return nil, errors.Internal(errors.ErrCodePreferenceFailed, "failed to persist payment")
	}

	checkoutURL := pref.InitPoint
	if uc.config.Client.MercadoPago.IsSandbox() && pref.SandboxInitPoint != "" {
		checkoutURL = pref.SandboxInitPoint
	}
	uc.log.Infof("Checkout created: timeline=%s plan=%s preference=%s", timelineID, plan, pref.ID)
	return &CheckoutResult{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
		CheckoutURL:      checkoutURL,
	}, nil
}

// defaultBaseURL last link of the resolution chain.
const defaultBaseURL = "https://momentusi.com.br"

// ResolveBaseURL picks the public base URL of the app: explicit config,
// then the platform-provided URL, then the request Origin, then the Host
// header, then the hard-coded default.
func ResolveBaseURL(app *conf.App, origin, host string) string {
	if app != nil && app.BaseUrl != "" {
		return strings.TrimRight(app.BaseUrl, "/")
	}
	if platform := os.Getenv("PLATFORM_URL"); platform != "" {
		if !strings.Contains(platform, "://") {
			platform = "https://" + platform
		}
		return strings.TrimRight(platform, "/")
	}
	if origin != "" {
		return strings.TrimRight(origin, "/")
	}
	if host != "" {
		scheme := "https"
		if IsLoopbackURL("http://" + host) {
			scheme = "http"
		}
		return scheme + "://" + host
	}
	return defaultBaseURL
}

// IsLoopbackURL reports whether a URL points at localhost; the gateway
// cannot deliver webhooks there.
func IsLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	h := u.Hostname()
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
