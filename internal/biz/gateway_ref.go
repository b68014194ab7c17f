package biz

// GatewayRefKind distinguishes the two kinds of Mercado Pago identifiers a
// payment row can hold over its life.
type GatewayRefKind int

const (
	// GatewayRefPreference checkout preference id, stored as a placeholder
	// until the real payment id is known
	GatewayRefPreference GatewayRefKind = iota
	// GatewayRefPayment real payment id, written once a webhook or sync
	// learns it
	GatewayRefPayment
)

// GatewayRef is a tagged gateway identifier. Call sites branch on Kind
// instead of string-sniffing the raw id.
type GatewayRef struct {
	Kind GatewayRefKind
	ID   string
}

// ParseGatewayRef classifies a stored gateway id. Mercado Pago payment ids
// are purely numeric; preference ids embed the collector id and dashes
// (e.g. "202809963-d8f...").
func ParseGatewayRef(id string) GatewayRef {
	if id == "" || !isAllDigits(id) {
		return GatewayRef{Kind: GatewayRefPreference, ID: id}
	}
	return GatewayRef{Kind: GatewayRefPayment, ID: id}
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
