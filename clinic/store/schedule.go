package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// ScheduleStore drives the per-slot reservation state machine:
//
//	AVAILABLE (patient IS NULL)  --reserve-->  RESERVED (patient = identity)
//	RESERVED                     --cancel--->  AVAILABLE (occupant only)
//
// Both transitions are single conditional UPDATE statements, so concurrent
// reserve attempts on one slot yield exactly one winner; the loser sees a
// zero-row update and gets ErrSlotTaken with the slot unchanged.
type ScheduleStore struct {
	db *bun.DB
}

func NewScheduleStore(db *bun.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// Slot is a pure read of one slot row.
func (s *ScheduleStore) Slot(ctx context.Context, id int64) (*TimeSlot, error) {
	slot := new(TimeSlot)
	err := s.db.NewSelect().Model(slot).Where("a.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%d", ErrSlotNotFound, id)
		}
		return nil, fmt.Errorf("select slot id=%d: %w", id, err)
	}
	return slot, nil
}

// Available lists open slots whose doctor matches the given substring,
// case-insensitively.
func (s *ScheduleStore) Available(ctx context.Context, doctor string) ([]TimeSlot, error) {
	var slots []TimeSlot
	err := s.db.NewSelect().
		Model(&slots).
		Where("a.patient IS NULL").
		Where("lower(a.doctor) LIKE ?", likePattern(doctor)).
		Order("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select available slots: %w", err)
	}
	return slots, nil
}

// ForPatient lists the slots currently occupied by the given patient,
// optionally filtered by doctor. Callers are responsible for authorizing
// the patient identity first.
func (s *ScheduleStore) ForPatient(ctx context.Context, patient, doctor string) ([]TimeSlot, error) {
	q := s.db.NewSelect().
		Model((*TimeSlot)(nil)).
		Where("lower(a.patient) = lower(?)", strings.TrimSpace(patient)).
		Order("a.id ASC")
	if strings.TrimSpace(doctor) != "" {
		q = q.Where("lower(a.doctor) LIKE ?", likePattern(doctor))
	}

	var slots []TimeSlot
	if err := q.Model(&slots).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select patient slots: %w", err)
	}
	return slots, nil
}

// Reserve transitions AVAILABLE -> RESERVED for identity. An occupied slot
// is never overwritten, even when the occupant is identity itself; the
// caller gets ErrSlotTaken as a conflict status.
func (s *ScheduleStore) Reserve(ctx context.Context, id int64, identity string) (*TimeSlot, error) {
	res, err := s.db.NewUpdate().
		Model((*TimeSlot)(nil)).
		Set("patient = ?", strings.TrimSpace(identity)).
		Where("id = ?", id).
		Where("patient IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve slot id=%d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reserve slot id=%d: rows affected: %w", id, err)
	}
	if affected == 0 {
		// Distinguish missing slot from occupied slot after the fact; the
		// transition itself already refused without touching the row.
		slot, lookupErr := s.Slot(ctx, id)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return slot, fmt.Errorf("%w: id=%d", ErrSlotTaken, id)
	}
	return s.Slot(ctx, id)
}

// Cancel transitions RESERVED -> AVAILABLE when identity is the occupant
// (case-insensitive). Cancelling an already-available slot is a no-op;
// cancelling another patient's reservation fails with ErrNotOccupant and
// leaves the slot unchanged.
func (s *ScheduleStore) Cancel(ctx context.Context, id int64, identity string) (*TimeSlot, error) {
	res, err := s.db.NewUpdate().
		Model((*TimeSlot)(nil)).
		Set("patient = NULL").
		Where("id = ?", id).
		Where("lower(patient) = lower(?)", strings.TrimSpace(identity)).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("cancel slot id=%d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("cancel slot id=%d: rows affected: %w", id, err)
	}
	if affected == 0 {
		slot, lookupErr := s.Slot(ctx, id)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if !slot.Available() {
			return slot, fmt.Errorf("%w: id=%d", ErrNotOccupant, id)
		}
		return slot, nil
	}
	return s.Slot(ctx, id)
}

func likePattern(needle string) string {
	return "%" + strings.ToLower(strings.TrimSpace(needle)) + "%"
}
