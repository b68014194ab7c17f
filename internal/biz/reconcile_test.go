package biz

import (
	"testing"

	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name        string
		local       string
		gateway     string
		action      string
		wantStatus  string
		wantPublish bool
		wantChanged bool
	}{
		{
			name:        "pending approved succeeds and publishes",
			local:       constants.PaymentStatusPending,
			gateway:     constants.GatewayStatusApproved,
			wantStatus:  constants.PaymentStatusSucceeded,
			wantPublish: true,
			wantChanged: true,
		},
		{
			name:        "payment.created action counts as approval",
			local:       constants.PaymentStatusPending,
			gateway:     constants.GatewayStatusPending,
			action:      "payment.created",
			wantStatus:  constants.PaymentStatusSucceeded,
			wantPublish: true,
			wantChanged: true,
		},
		{
			name:        "pending rejected fails",
			local:       constants.PaymentStatusPending,
			gateway:     constants.GatewayStatusRejected,
			wantStatus:  constants.PaymentStatusFailed,
			wantChanged: true,
		},
		{
			name:        "pending cancelled fails",
			local:       constants.PaymentStatusPending,
			gateway:     constants.GatewayStatusCancelled,
			wantStatus:  constants.PaymentStatusFailed,
			wantChanged: true,
		},
		{
			name:        "pending refunded fails",
			local:       constants.PaymentStatusPending,
			gateway:     constants.GatewayStatusRefunded,
			wantStatus:  constants.PaymentStatusFailed,
			wantChanged: true,
		},
		{
			name:       "pending stays pending",
			local:      constants.PaymentStatusPending,
			gateway:    constants.GatewayStatusPending,
			wantStatus: constants.PaymentStatusPending,
		},
		{
			name:       "in_process stays pending",
			local:      constants.PaymentStatusPending,
			gateway:    constants.GatewayStatusInProcess,
			wantStatus: constants.PaymentStatusPending,
		},
		{
			name:       "unknown gateway status is a no-op",
			local:      constants.PaymentStatusPending,
			gateway:    "authorized",
			wantStatus: constants.PaymentStatusPending,
		},
		{
			name:        "succeeded never regresses on rejection",
			local:       constants.PaymentStatusSucceeded,
			gateway:     constants.GatewayStatusRejected,
			wantStatus:  constants.PaymentStatusSucceeded,
			wantChanged: false,
		},
		{
			name:        "succeeded approved re-raises publish for saga recovery",
			local:       constants.PaymentStatusSucceeded,
			gateway:     constants.GatewayStatusApproved,
			wantStatus:  constants.PaymentStatusSucceeded,
			wantPublish: true,
			wantChanged: false,
		},
		{
			name:       "failed never becomes succeeded",
			local:      constants.PaymentStatusFailed,
			gateway:    constants.GatewayStatusApproved,
			wantStatus: constants.PaymentStatusFailed,
		},
		{
			name:       "failed stays failed",
			local:      constants.PaymentStatusFailed,
			gateway:    constants.GatewayStatusRejected,
			wantStatus: constants.PaymentStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Reconcile(tt.local, tt.gateway, tt.action)
			assert.Equal(t, tt.wantStatus, d.NewStatus)
			assert.Equal(t, tt.wantPublish, d.ShouldPublish)
			assert.Equal(t, tt.wantChanged, d.Changed)
		})
	}
}

// applying the same gateway state twice never reports a second change
func TestReconcileIdempotent(t *testing.T) {
	first := Reconcile(constants.PaymentStatusPending, constants.GatewayStatusApproved, "")
	assert.True(t, first.Changed)

	second := Reconcile(first.NewStatus, constants.GatewayStatusApproved, "")
	assert.False(t, second.Changed)
	assert.Equal(t, first.NewStatus, second.NewStatus)
}

func TestParseGatewayRef(t *testing.T) {
	tests := []struct {
		id   string
		kind GatewayRefKind
	}{
		{"123456789", GatewayRefPayment},
		{"202809963-d8f3a6e1-4c1b-4f5e-9a2b-7c8d9e0f1a2b", GatewayRefPreference},
		{"", GatewayRefPreference},
		{"abc", GatewayRefPreference},
		{"12a34", GatewayRefPreference},
	}
	for _, tt := range tests {
		ref := ParseGatewayRef(tt.id)
		assert.Equal(t, tt.kind, ref.Kind, "id %q", tt.id)
		assert.Equal(t, tt.id, ref.ID)
	}
}
