package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// DirectoryStore is the read-only doctor/specialization lookup.
type DirectoryStore struct {
	db *bun.DB
}

func NewDirectoryStore(db *bun.DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

// BySpecialization returns doctors whose specialization contains the given
// substring, case-insensitively.
func (s *DirectoryStore) BySpecialization(ctx context.Context, specialization string) ([]Doctor, error) {
	var doctors []Doctor
	err := s.db.NewSelect().
		Model(&doctors).
		Where("lower(d.specialization) LIKE ?", likePattern(specialization)).
		Order("d.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select doctors by specialization: %w", err)
	}
	return doctors, nil
}
