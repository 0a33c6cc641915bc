package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func ptr(s string) *string { return &s }

var seedDoctors = []Doctor{
	{Name: "Dr. Lyubor", Specialization: "Neurology"},
	{Name: "Dr. Brazov", Specialization: "Pneumology"},
	{Name: "Dr. Amicis", Specialization: "Endocrinology"},
	{Name: "Dr. Mirabella", Specialization: "Gastroenterology"},
	{Name: "Dr. Muller", Specialization: "Cardiology"},
	{Name: "Dr. Dubois", Specialization: "Dermatology"},
}

var seedSlots = []TimeSlot{
	{ID: 0, Doctor: "Dr. Lyubor", TimeSlot: "10-01-2025 09:00:00"},
	{ID: 1, Doctor: "Dr. Lyubor", TimeSlot: "10-01-2025 10:00:00", Patient: ptr("Martini")},
	{ID: 2, Doctor: "Dr. Brazov", TimeSlot: "11-01-2025 09:00:00"},
	{ID: 3, Doctor: "Dr. Brazov", TimeSlot: "11-01-2025 10:00:00"},
	{ID: 4, Doctor: "Dr. Amicis", TimeSlot: "12-01-2025 09:00:00"},
	{ID: 5, Doctor: "Dr. Amicis", TimeSlot: "12-01-2025 10:00:00"},
	{ID: 6, Doctor: "Dr. Mirabella", TimeSlot: "13-01-2025 09:00:00", Patient: ptr("Russel")},
	{ID: 7, Doctor: "Dr. Mirabella", TimeSlot: "13-01-2025 10:00:00"},
	{ID: 8, Doctor: "Dr. Muller", TimeSlot: "14-01-2025 09:00:00"},
	{ID: 9, Doctor: "Dr. Muller", TimeSlot: "14-01-2025 10:00:00"},
	{ID: 10, Doctor: "Dr. Dubois", TimeSlot: "15-01-2025 09:00:00"},
	{ID: 11, Doctor: "Dr. Dubois", TimeSlot: "15-01-2025 10:00:00"},
}

// Migrate creates the schema if missing and seeds the reference data.
// Seeding is idempotent: existing rows are left untouched, so reservations
// survive restarts.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Doctor)(nil),
		(*TimeSlot)(nil),
		(*EmergencyReport)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	doctors := seedDoctors
	if _, err := db.NewInsert().Model(&doctors).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}

	slots := seedSlots
	if _, err := db.NewInsert().Model(&slots).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}
	return nil
}
