package model

import "time"

// Payment row. GatewayPaymentID starts life as the checkout preference id
// and is overwritten with the real Mercado Pago payment id once a webhook
// or sync learns it. Several rows per timeline are expected (retries); the
// newest by created_at wins.
type Payment struct {
	ID               uint64    `gorm:"primaryKey;column:payment_id;autoIncrement"`
	TimelineID       string    `gorm:"column:timeline_id;type:char(36);index"`
	GatewayPaymentID string    `gorm:"column:gateway_payment_id;type:varchar(128);index"`
	PlanType         string    `gorm:"column:plan_type;type:varchar(16)"`
	AmountCents      int64     `gorm:"column:amount_cents"`
	Status           string    `gorm:"column:status;type:varchar(16);index"` // pending, succeeded, failed
	PayerEmail       string    `gorm:"column:payer_email;type:varchar(255)"`
	CreatedAt        time.Time `gorm:"column:created_at;index"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (Payment) TableName() string { return "payments" }
