package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	masterdata "community-ledger/internal/masterdata/domain"
)

// PropertyRepository persists properties.
type PropertyRepository struct {
	db *sql.DB
}

// NewPropertyRepository constructs a repository.
func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// ListActive returns active properties with a known share weight.
func (r *PropertyRepository) ListActive(ctx context.Context) ([]masterdata.Property, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("property repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, owner_id, share_weight, is_active, is_conservation
FROM properties
WHERE is_active AND share_weight IS NOT NULL
ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []masterdata.Property
	for rows.Next() {
		var p masterdata.Property
		var weight sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &weight, &p.IsActive, &p.IsConservation); err != nil {
			return nil, err
		}
		if weight.Valid {
			w, err := decimal.NewFromString(weight.String)
			if err != nil {
				return nil, err
			}
			p.ShareWeight = &w
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}
