package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// EmergencyStore appends immutable incident records. There is no update or
// delete path on purpose.
type EmergencyStore struct {
	db *bun.DB
}

func NewEmergencyStore(db *bun.DB) *EmergencyStore {
	return &EmergencyStore{db: db}
}

func (s *EmergencyStore) Register(ctx context.Context, report *EmergencyReport) error {
	if _, err := ParseSeverity(string(report.Severity)); err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(report).Exec(ctx); err != nil {
		return fmt.Errorf("insert emergency report: %w", err)
	}
	return nil
}

// List returns all registered emergencies, oldest first. Used by the
// on-call review tooling.
func (s *EmergencyStore) List(ctx context.Context) ([]EmergencyReport, error) {
	var reports []EmergencyReport
	err := s.db.NewSelect().Model(&reports).Order("e.id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select emergencies: %w", err)
	}
	return reports, nil
}
