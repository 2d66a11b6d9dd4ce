package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/jmoiron/sqlx"
)

const itemColumns = `id, name, unit, on_hand_quantity, min_threshold, cost_per_unit,
	supplier_code, vendor_code, status, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	query := r.DB.Rebind(`SELECT ` + itemColumns + ` FROM inventory_items WHERE id = ?`)
	err := r.DB.GetContext(ctx, &item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) BatchGetByIDs(ctx context.Context, ids []string) ([]model.InventoryItem, error) {
	if len(ids) == 0 {
		return []model.InventoryItem{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM inventory_items WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var items []model.InventoryItem
	err = r.DB.SelectContext(ctx, &items, query, args...)
	return items, err
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.InventoryFilters) ([]model.InventoryItem, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if len(f.IDs) > 0 {
		conditions = append(conditions, "id IN (?)")
		args = append(args, f.IDs)
	}
	statuses := f.Statuses
	if f.LowStock {
		statuses = []model.StockStatus{model.StockLow, model.StockCritical, model.StockOutOfStock}
	}
	if len(statuses) > 0 {
		raw := make([]string, len(statuses))
		for i, s := range statuses {
			raw[i] = string(s)
		}
		conditions = append(conditions, "status IN (?)")
		args = append(args, raw)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery, countArgs, err := sqlx.In("SELECT count(*) FROM inventory_items"+whereClause, args...)
	if err != nil {
		return nil, 0, err
	}
	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + itemColumns + " FROM inventory_items" + whereClause + " ORDER BY on_hand_quantity ASC, name ASC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}
	query, queryArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, 0, err
	}

	var items []model.InventoryItem
	err = r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), queryArgs...)
	return items, count, err
}

func (r *PGRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	query := `
        INSERT INTO inventory_items (
            id, name, unit, on_hand_quantity, min_threshold, cost_per_unit,
            supplier_code, vendor_code, status, created_at, updated_at
        )
        VALUES (
            :id, :name, :unit, :on_hand_quantity, :min_threshold, :cost_per_unit,
            :supplier_code, :vendor_code, :status, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, item)
	return err
}

func (r *PGRepository) UpdateDetails(ctx context.Context, item *model.InventoryItem) error {
	query := `
        UPDATE inventory_items SET
            name = :name,
            min_threshold = :min_threshold,
            cost_per_unit = :cost_per_unit,
            supplier_code = :supplier_code,
            vendor_code = :vendor_code,
            status = :status,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, item)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update item %s: %w", item.ID, sql.ErrNoRows)
	}
	return nil
}
