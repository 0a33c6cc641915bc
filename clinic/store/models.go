package store

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// Doctor is immutable reference data.
type Doctor struct {
	bun.BaseModel `bun:"table:doctors,alias:d"`

	Name           string `bun:"name,pk" json:"name"`
	Specialization string `bun:"specialization,notnull" json:"specialization"`
}

// TimeSlot is one bookable time unit tied to a doctor. A nil Patient means
// the slot is available; a set Patient is its exclusive occupant. Slots are
// bulk-provisioned and never deleted; only the reserve/cancel transitions
// mutate them.
type TimeSlot struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID       int64   `bun:"id,pk" json:"slot_id"`
	Doctor   string  `bun:"doctor,notnull" json:"doctor"`
	TimeSlot string  `bun:"time_slot,notnull" json:"time_slot"`
	Patient  *string `bun:"patient" json:"patient,omitempty"`
}

func (s *TimeSlot) Available() bool {
	return s.Patient == nil
}

// Severity is the color code assigned to an emergency.
type Severity string

const (
	SeverityRed    Severity = "RED"
	SeverityYellow Severity = "YELLOW"
	SeverityGreen  Severity = "GREEN"
)

// ParseSeverity normalizes and validates a color code.
func ParseSeverity(raw string) (Severity, error) {
	switch s := Severity(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SeverityRed, SeverityYellow, SeverityGreen:
		return s, nil
	default:
		return "", fmt.Errorf("severity must be one of RED, YELLOW, GREEN; got %q", raw)
	}
}

// EmergencyReport is an append-only incident record. Reporter is the acting
// identity that registered it; Patient is the person it concerns.
type EmergencyReport struct {
	bun.BaseModel `bun:"table:emergencies,alias:e"`

	ID          int64    `bun:"id,pk,autoincrement" json:"id"`
	Reporter    string   `bun:"reporter,notnull" json:"reporter"`
	Patient     string   `bun:"patient,notnull" json:"patient"`
	Time        string   `bun:"time,notnull" json:"time"`
	Description string   `bun:"description,notnull" json:"description"`
	Severity    Severity `bun:"severity,notnull" json:"severity"`
}
