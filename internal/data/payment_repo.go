package data

import (
	"context"
	"errors"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"
	"github.com/GustavoAl5317/momentusi-sub000/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// paymentRepo implements biz.PaymentRepo.
type paymentRepo struct {
	data *Data
	log  *log.Helper
}

// NewPaymentRepo creates the payment repository.
func NewPaymentRepo(data *Data, logger log.Logger) biz.PaymentRepo {
	return &paymentRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreatePayment inserts a payment row.
func (r *paymentRepo) CreatePayment(ctx context.Context, p *biz.Payment) error {
	m := paymentToModel(p)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to create payment for timeline %s: %v", p.TimelineID, err)
		return err
	}
	p.ID = m.ID
	return nil
}

// GetLatestPaymentByTimeline returns the newest payment for a timeline,
// or nil when the timeline never entered checkout.
func (r *paymentRepo) GetLatestPaymentByTimeline(ctx context.Context, timelineID string) (*biz.Payment, error) {
	var m model.Payment
	err := r.data.DB(ctx).
		Where("timeline_id = ?", timelineID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get latest payment for timeline %s: %v", timelineID, err)
		return nil, err
	}
	return paymentToBiz(&m), nil
}

// GetPaymentByGatewayID matches on the stored gateway id (preference or
// real payment id).
func (r *paymentRepo) GetPaymentByGatewayID(ctx context.Context, gatewayID string) (*biz.Payment, error) {
	var m model.Payment
	err := r.data.DB(ctx).
		Where("gateway_payment_id = ?", gatewayID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get payment by gateway id %s: %v", gatewayID, err)
		return nil, err
	}
	return paymentToBiz(&m), nil
}

// UpdatePayment saves status, gateway id and timestamps.
func (r *paymentRepo) UpdatePayment(ctx context.Context, p *biz.Payment) error {
	if err := r.data.DB(ctx).Save(paymentToModel(p)).Error; err != nil {
		r.log.Errorf("Failed to update payment %d: %v", p.ID, err)
		return err
	}
	return nil
}

// HasSucceededPayment reports whether any payment for the timeline
// succeeded.
func (r *paymentRepo) HasSucceededPayment(ctx context.Context, timelineID string) (bool, error) {
	var count int64
	err := r.data.DB(ctx).Model(&model.Payment{}).
		Where("timeline_id = ? AND status = ?", timelineID, constants.PaymentStatusSucceeded).
		Count(&count).Error
	if err != nil {
		r.log.Errorf("Failed to count succeeded payments for timeline %s: %v", timelineID, err)
		return false, err
	}
	return count > 0, nil
}

// ListStalePending returns pending payments created before the cutoff,
// oldest first.
func (r *paymentRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*biz.Payment, error) {
	var models []model.Payment
	err := r.data.DB(ctx).
		Where("status = ? AND created_at < ?", constants.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		r.log.Errorf("Failed to list stale pending payments: %v", err)
		return nil, err
	}
	payments := make([]*biz.Payment, len(models))
	for i := range models {
		payments[i] = paymentToBiz(&models[i])
	}
	return payments, nil
}

func paymentToModel(p *biz.Payment) *model.Payment {
	return &model.Payment{
		ID:               p.ID,
		TimelineID:       p.TimelineID,
		GatewayPaymentID: p.GatewayID,
		PlanType:         p.Plan,
		AmountCents:      p.Amount,
		Status:           p.Status,
		PayerEmail:       p.PayerEmail,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func paymentToBiz(m *model.Payment) *biz.Payment {
	return &biz.Payment{
		ID:         m.ID,
		TimelineID: m.TimelineID,
		GatewayID:  m.GatewayPaymentID,
		Plan:       m.PlanType,
		Amount:     m.AmountCents,
		Status:     m.Status,
		PayerEmail: m.PayerEmail,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
