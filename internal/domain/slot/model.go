package slot

// Status is the lifecycle state of a slot.
type Status string

const (
	// StatusAvailable means the slot has spots remaining.
	StatusAvailable Status = "available"
	// StatusFilled means the slot is at capacity.
	StatusFilled Status = "filled"
	// StatusHeld is an administrative lock: signups and withdrawals never
	// move a held slot to available or filled, only an explicit admin
	// update can.
	StatusHeld Status = "held"
)

// Slot is the canonical in-memory slot representation, produced by
// FromEntity from whichever stored shape the record carries.
type Slot struct {
	ID             string           `json:"id"`
	ProjectID      string           `json:"-"`
	Task           string           `json:"task"`
	Date           string           `json:"date"`
	Time           string           `json:"time"`
	Status         Status           `json:"status"`
	Capacity       int              `json:"capacity"`
	FilledCount    int              `json:"filledCount"`
	SpotsRemaining int              `json:"spotsRemaining"`
	Volunteer      *LegacyVolunteer `json:"volunteer"`

	// ETag is the version token from the read that produced this slot.
	ETag string `json:"-"`
}

// LegacyVolunteer carries the historical single-volunteer fields still
// present on old slot records.
type LegacyVolunteer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Metrics is the normalized capacity state of a slot.
type Metrics struct {
	Capacity       int
	FilledCount    int
	SpotsRemaining int
}

// NextStatus computes the status after a counter change. Held is sticky.
func NextStatus(current Status, filled, capacity int) Status {
	if current == StatusHeld {
		return StatusHeld
	}
	if filled >= capacity {
		return StatusFilled
	}
	return StatusAvailable
}
