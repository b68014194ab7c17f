package constants

import "time"

// Cache
const (
	// DefaultCacheExpiration default TTL for cached public timelines
	DefaultCacheExpiration = time.Hour
	// NullCacheExpiration TTL for cached misses (avoids cache penetration)
	NullCacheExpiration = 5 * time.Minute
	// CacheRandomMaxSeconds random jitter added to TTLs (avoids stampedes)
	CacheRandomMaxSeconds = 600

	// PublicTimelineCachePrefix redis key prefix for public timeline JSON
	PublicTimelineCachePrefix = "timeline:public:"
)

// Plan tiers
const (
	PlanEssential = "essential"
	PlanComplete  = "complete"

	// PlanEssentialAmountCents one-time price of the essential tier
	PlanEssentialAmountCents = 1990
	// PlanCompleteAmountCents one-time price of the complete tier
	PlanCompleteAmountCents = 3990

	// EssentialMomentLimit maximum moments on the essential tier
	EssentialMomentLimit = 10
	// MaxImagesPerMoment image URLs allowed on a single moment
	MaxImagesPerMoment = 3
)

// Payment status (local)
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// Gateway status values as Mercado Pago reports them
const (
	GatewayStatusApproved    = "approved"
	GatewayStatusPending     = "pending"
	GatewayStatusInProcess   = "in_process"
	GatewayStatusRejected    = "rejected"
	GatewayStatusCancelled   = "cancelled"
	GatewayStatusRefunded    = "refunded"
	GatewayStatusChargedBack = "charged_back"
)

// Timeline layouts
const (
	LayoutVertical   = "vertical"
	LayoutHorizontal = "horizontal"
)

// Reconciliation sweep
const (
	// ReconcileSweepMinAge pending payments younger than this are left for
	// the webhook to settle before the sweeper touches them
	ReconcileSweepMinAge = 2 * time.Minute
	// ReconcileSweepBatchSize payments processed per sweep run
	ReconcileSweepBatchSize = 50
	// ReconcileLockExpiration per-payment sweep lock TTL
	ReconcileLockExpiration = 1 * time.Minute
	// ReconcileLockRetries single attempt: a busy lock means another
	// sweeper already holds the payment
	ReconcileLockRetries = 1
)

// Draft cleanup
const (
	// DefaultDraftRetentionDays unpaid drafts older than this are removed
	DefaultDraftRetentionDays = 30
)
