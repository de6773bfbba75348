package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SequenceRepository hands out gap-free per-organization document numbers.
type SequenceRepository interface {
	// Next increments and returns the counter for (orgID, scope, year), starting at 1.
	Next(ctx context.Context, orgID uuid.UUID, scope string, year int) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

const nextSequenceSQL = `INSERT INTO document_sequences (organization_id, scope, year, value)
VALUES (?, ?, ?, 1)
ON CONFLICT (organization_id, scope, year) DO UPDATE SET value = document_sequences.value + 1
RETURNING value`

// Next runs inside a savepoint when called in a transaction, so a missing
// counter table leaves the surrounding transaction usable for a fallback.
func (r *sequenceRepository) Next(ctx context.Context, orgID uuid.UUID, scope string, year int) (int64, error) {
	db := GetDB(ctx, r.db)

	if !InTx(ctx) {
		return scanNext(db, orgID, scope, year)
	}

	if err := db.SavePoint("doc_seq").Error; err != nil {
		return 0, err
	}
	value, err := scanNext(db, orgID, scope, year)
	if err != nil {
		if rbErr := db.RollbackTo("doc_seq").Error; rbErr != nil {
			return 0, rbErr
		}
		return 0, err
	}
	return value, nil
}

func scanNext(db *gorm.DB, orgID uuid.UUID, scope string, year int) (int64, error) {
	var value int64
	if err := db.Raw(nextSequenceSQL, orgID, scope, year).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}
