package signup

import (
	"github.com/yacnet/signupd/internal/domain/slot"
	"github.com/yacnet/signupd/internal/store"
)

// Volunteer is the public projection of a volunteer signup record.
type Volunteer struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId,omitempty"`
	SlotID      string `json:"slotId,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	SignedUpUtc string `json:"signedUpUtc,omitempty"`
}

// NewVolunteer defines signup inputs.
type NewVolunteer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// SignupResult is returned on a successful signup.
type SignupResult struct {
	Slot      slot.Slot `json:"slot"`
	Volunteer Volunteer `json:"volunteer"`
}

// WithdrawResult is returned when a volunteer record has been removed.
// CountsStale is set when the record is gone but the slot's counters could
// not be updated; callers should refresh rather than trust Slot.
type WithdrawResult struct {
	Slot        *slot.Slot `json:"slot"`
	Volunteer   Volunteer  `json:"volunteer"`
	CountsStale bool       `json:"-"`
}

func volunteerFromEntity(ent *store.Entity) Volunteer {
	return Volunteer{
		ID:          ent.RowKey,
		ProjectID:   propString(ent.Props, "ProjectId"),
		SlotID:      propString(ent.Props, "SlotId"),
		FirstName:   propString(ent.Props, "FirstName"),
		LastName:    propString(ent.Props, "LastName"),
		Email:       propString(ent.Props, "Email"),
		Phone:       propString(ent.Props, "Phone"),
		SignedUpUtc: propString(ent.Props, "SignedUpUtc"),
	}
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
