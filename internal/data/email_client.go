package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

const resendAPIURL = "https://api.resend.com/emails"

// resendEmailSender sends the post-payment confirmation through the Resend
// REST API.
type resendEmailSender struct {
	apiKey     string
	from       string
	httpClient *http.Client
	log        *log.Helper
}

// noopEmailSender is the graceful degradation when no provider key is
// configured: the flow continues, nothing is sent.
type noopEmailSender struct {
	log *log.Helper
}

// NewEmailSender creates the confirmation email sender.
func NewEmailSender(c *conf.Bootstrap, logger log.Logger) biz.EmailSender {
	helper := log.NewHelper(logger)
	if c.Client == nil || c.Client.Email == nil || c.Client.Email.ApiKey == "" {
		helper.Info("no email provider configured, confirmation emails disabled")
		return &noopEmailSender{log: helper}
	}
	from := c.Client.Email.From
	if from == "" {
		from = "Momentusi <noreply@momentusi.com.br>"
	}
	return &resendEmailSender{
		apiKey:     c.Client.Email.ApiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        helper,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendPaymentConfirmation mails the public and edit links after a
// confirmed payment.
func (s *resendEmailSender) SendPaymentConfirmation(ctx context.Context, to, publicURL, editURL string) error {
	body := &resendRequest{
		From:    s.from,
		To:      []string{to},
		Subject: "Your timeline is live!",
		HTML: fmt.Sprintf(
			`<p>Your payment was confirmed and your timeline is now published.</p>`+
				`<p>Share it: <a href="%s">%s</a></p>`+
				`<p>Keep this edit link private, it is the only way to change your timeline: <a href="%s">%s</a></p>`,
			publicURL, publicURL, editURL, editURL),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendAPIURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned %s: %s", resp.Status, detail)
	}
	s.log.Infof("Confirmation email sent to %s", to)
	return nil
}

func (s *noopEmailSender) SendPaymentConfirmation(ctx context.Context, to, publicURL, editURL string) error {
	s.log.Infof("Email disabled, skipping confirmation to %s", to)
	return nil
}
