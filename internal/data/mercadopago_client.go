package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultMercadoPagoBaseURL = "https://api.mercadopago.com"

// defaultGatewayTimeout fixed client timeout on every outbound gateway call.
const defaultGatewayTimeout = 5 * time.Second

// mercadoPagoGateway implements biz.PaymentGateway against the Mercado
// Pago REST API.
type mercadoPagoGateway struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	log         *log.Helper
}

// NewMercadoPagoGateway creates the gateway client.
func NewMercadoPagoGateway(c *conf.Bootstrap, logger log.Logger) (biz.PaymentGateway, error) {
	mp := c.Client.MercadoPago
	if mp == nil || mp.AccessToken == "" {
		return nil, fmt.Errorf("mercado pago access token is required")
	}

	baseURL := defaultMercadoPagoBaseURL
	if mp.BaseUrl != "" {
		baseURL = mp.BaseUrl
	}
	timeout := defaultGatewayTimeout
	if mp.Timeout != "" {
		if d, err := time.ParseDuration(mp.Timeout); err == nil {
			timeout = d
		}
	}

	return &mercadoPagoGateway{
		baseURL:     baseURL,
		accessToken: mp.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log.NewHelper(logger),
	}, nil
}

// wire types

type mpPreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type mpPreferenceRequest struct {
	Items             []mpPreferenceItem `json:"items"`
	Payer             *mpPayer           `json:"payer,omitempty"`
	BackURLs          mpBackURLs         `json:"back_urls"`
	AutoReturn        string             `json:"auto_return,omitempty"`
	ExternalReference string             `json:"external_reference"`
	NotificationURL   string             `json:"notification_url,omitempty"`
	Metadata          map[string]string  `json:"metadata,omitempty"`
}

type mpPayer struct {
	Email string `json:"email,omitempty"`
}

type mpPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type mpPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	DateCreated       string      `json:"date_created"`
	Payer             *mpPayer    `json:"payer,omitempty"`
}

type mpSearchResponse struct {
	Results []mpPayment `json:"results"`
}

// CreatePreference opens a checkout preference for one line item.
func (g *mercadoPagoGateway) CreatePreference(ctx context.Context, req *biz.PreferenceRequest) (*biz.Preference, error) {
	body := &mpPreferenceRequest{
		Items: []mpPreferenceItem{{
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  float64(req.Amount) / 100,
			CurrencyID: "BRL",
		}},
		BackURLs: mpBackURLs{
			Success: req.SuccessURL,
			Failure: req.FailureURL,
			Pending: req.PendingURL,
		},
		AutoReturn:        "approved",
		ExternalReference: req.TimelineID,
		NotificationURL:   req.NotificationURL,
		Metadata: map[string]string{
			"timeline_id": req.TimelineID,
			"plan":        req.Plan,
		},
	}
	if req.PayerEmail != "" {
		body.Payer = &mpPayer{Email: req.PayerEmail}
	}

	var resp mpPreferenceResponse
	if err := g.do(ctx, http.MethodPost, "/checkout/preferences", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("gateway returned an empty preference id")
	}
	return &biz.Preference{
		ID:               resp.ID,
		InitPoint:        resp.InitPoint,
		SandboxInitPoint: resp.SandboxInitPoint,
	}, nil
}

// GetPayment fetches a payment by its real id.
func (g *mercadoPagoGateway) GetPayment(ctx context.Context, id string) (*biz.GatewayPayment, error) {
	var resp mpPayment
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID.String() == "" {
		return nil, nil
	}
	return paymentFromWire(&resp), nil
}

// SearchPaymentByReference returns the newest payment carrying the
// external reference, or nil when the gateway has none yet.
func (g *mercadoPagoGateway) SearchPaymentByReference(ctx context.Context, externalReference string) (*biz.GatewayPayment, error) {
	q := url.Values{}
	q.Set("external_reference", externalReference)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	var resp mpSearchResponse
	if err := g.do(ctx, http.MethodGet, "/v1/payments/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return paymentFromWire(&resp.Results[0]), nil
}

func paymentFromWire(p *mpPayment) *biz.GatewayPayment {
	gw := &biz.GatewayPayment{
		ID:                p.ID.String(),
		Status:            p.Status,
		StatusDetail:      p.StatusDetail,
		ExternalReference: p.ExternalReference,
	}
	if p.Payer != nil {
		gw.PayerEmail = p.Payer.Email
	}
	return gw
}

func (g *mercadoPagoGateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercado pago request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		// callers treat a missing payment as nil, not an error
		return json.Unmarshal([]byte("{}"), out)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mercado pago returned %s: %s", resp.Status, truncate(string(raw), 512))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
