package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/jmoiron/sqlx"
)

type mappingRow struct {
	SellableID string    `db:"sellable_id"`
	Name       string    `db:"name"`
	Components string    `db:"components"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetBySellableID(ctx context.Context, sellableID string) (*model.MenuMapping, error) {
	var row mappingRow
	query := r.DB.Rebind(`SELECT sellable_id, name, components, updated_at FROM menu_mappings WHERE sellable_id = ?`)
	err := r.DB.GetContext(ctx, &row, query, sellableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	mapping := &model.MenuMapping{SellableID: row.SellableID, Name: row.Name}
	if err := json.Unmarshal([]byte(row.Components), &mapping.Components); err != nil {
		return nil, fmt.Errorf("menu mapping %s has malformed components: %w", sellableID, err)
	}
	return mapping, nil
}

func (r *PGRepository) ListSellableIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.SelectContext(ctx, &ids, `SELECT sellable_id FROM menu_mappings ORDER BY sellable_id`)
	return ids, err
}

func (r *PGRepository) Upsert(ctx context.Context, mapping *model.MenuMapping) error {
	components, err := json.Marshal(mapping.Components)
	if err != nil {
		return err
	}
	row := mappingRow{
		SellableID: mapping.SellableID,
		Name:       mapping.Name,
		Components: string(components),
		UpdatedAt:  time.Now().UTC(),
	}

	query := `
        INSERT INTO menu_mappings (sellable_id, name, components, updated_at)
        VALUES (:sellable_id, :name, :components, :updated_at)
        ON CONFLICT (sellable_id) DO UPDATE SET
            name = excluded.name,
            components = excluded.components,
            updated_at = excluded.updated_at
    `
	_, err = r.DB.NamedExecContext(ctx, query, row)
	return err
}
