package client

// PaymentStatus is the provider's canonical payment status. Known statuses are
// distinct types so callers switch on them exhaustively; anything else arrives
// as StatusUnknown carrying the raw value.
type PaymentStatus interface {
	String() string
	paymentStatus()
}

type (
	StatusPending   struct{}
	StatusApproved  struct{}
	StatusRejected  struct{}
	StatusCancelled struct{}
	StatusExpired   struct{}
	StatusRefunded  struct{}
	StatusUnknown   struct{ Raw string }
)

func (StatusPending) String() string   { return "pending" }
func (StatusApproved) String() string  { return "approved" }
func (StatusRejected) String() string  { return "rejected" }
func (StatusCancelled) String() string { return "cancelled" }
func (StatusExpired) String() string   { return "expired" }
func (StatusRefunded) String() string  { return "refunded" }
func (s StatusUnknown) String() string { return s.Raw }

func (StatusPending) paymentStatus()   {}
func (StatusApproved) paymentStatus()  {}
func (StatusRejected) paymentStatus()  {}
func (StatusCancelled) paymentStatus() {}
func (StatusExpired) paymentStatus()   {}
func (StatusRefunded) paymentStatus()  {}
func (StatusUnknown) paymentStatus()   {}

// ParsePaymentStatus maps a raw provider status string onto the union.
func ParsePaymentStatus(raw string) PaymentStatus {
	switch raw {
	case "pending", "in_process", "authorized":
		return StatusPending{}
	case "approved":
		return StatusApproved{}
	case "rejected":
		return StatusRejected{}
	case "cancelled":
		return StatusCancelled{}
	case "expired":
		return StatusExpired{}
	case "refunded":
		return StatusRefunded{}
	default:
		return StatusUnknown{Raw: raw}
	}
}
