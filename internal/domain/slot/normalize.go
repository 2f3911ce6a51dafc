package slot

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yacnet/signupd/internal/store"
)

// Slot records have drifted through several shapes: counter fields stored
// under either casing, capacity stored as a string by old admin tooling, and
// the oldest records carrying a single volunteer inline instead of a counter.
// FromEntity and NormalizeMetrics fold all of them into the canonical slot.
// Both are total: malformed values degrade to defaults rather than failing.

// NormalizeMetrics computes the capacity state of a raw slot record.
// Capacity defaults to 1 unless stored as a positive integer. A missing
// filled count is inferred as 1 when a legacy volunteer email is present,
// else 0, and is clamped to be non-negative.
func NormalizeMetrics(props map[string]any) Metrics {
	capacity, ok := propInt(props, "Capacity", "capacity")
	if !ok || capacity < 1 {
		capacity = 1
	}

	filled, ok := propInt(props, "FilledCount", "filledCount")
	if !ok {
		if propString(props, "VolunteerEmail") != "" {
			filled = 1
		} else {
			filled = 0
		}
	}
	if filled < 0 {
		filled = 0
	}

	remaining := capacity - filled
	if remaining < 0 {
		remaining = 0
	}

	return Metrics{
		Capacity:       capacity,
		FilledCount:    filled,
		SpotsRemaining: remaining,
	}
}

// FromEntity maps a raw stored slot to the canonical representation.
func FromEntity(ent *store.Entity) Slot {
	m := NormalizeMetrics(ent.Props)

	s := Slot{
		ID:             ent.RowKey,
		ProjectID:      ent.PartitionKey,
		Task:           propString(ent.Props, "Task"),
		Date:           propString(ent.Props, "Date"),
		Time:           propString(ent.Props, "Time"),
		Status:         normalizeStatus(propString(ent.Props, "Status")),
		Capacity:       m.Capacity,
		FilledCount:    m.FilledCount,
		SpotsRemaining: m.SpotsRemaining,
		ETag:           ent.ETag,
	}

	if email := propString(ent.Props, "VolunteerEmail"); email != "" {
		s.Volunteer = &LegacyVolunteer{
			Email:     email,
			FirstName: propString(ent.Props, "VolunteerFirstName"),
			LastName:  propString(ent.Props, "VolunteerLastName"),
			Phone:     propString(ent.Props, "VolunteerPhone"),
		}
	}

	return s
}

func normalizeStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusFilled:
		return StatusFilled
	case StatusHeld:
		return StatusHeld
	default:
		return StatusAvailable
	}
}

// propInt reads the first present key as an integer. JSON decoding hands
// numbers back as float64 and old records may hold strings, so both are
// accepted; anything non-integral reports !ok.
func propInt(props map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			if n != float64(int(n)) {
				return 0, false
			}
			return int(n), true
		case json.Number:
			parsed, err := n.Int64()
			if err != nil {
				return 0, false
			}
			return int(parsed), true
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return 0, false
			}
			return parsed, true
		default:
			return 0, false
		}
	}
	return 0, false
}

func propString(props map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := props[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
