package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/jmoiron/sqlx"
)

// PGRepository reads the purchasing and waste-logging tables. It implements
// both reconcile.PurchaseOrderSource and reconcile.WasteLogSource.
type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetOrder(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	query := r.DB.Rebind(`SELECT id, number, status FROM purchase_orders WHERE id = ?`)
	err := r.DB.GetContext(ctx, &order, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	linesQuery := r.DB.Rebind(`
        SELECT id, order_id, inventory_item_id, quantity_ordered, quantity_received, unit, unit_cost
        FROM purchase_order_lines
        WHERE order_id = ?
        ORDER BY id
    `)
	var lines []model.PurchaseOrderLine
	if err := r.DB.SelectContext(ctx, &lines, linesQuery, id); err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (r *PGRepository) ListOrderIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.SelectContext(ctx, &ids, `SELECT id FROM purchase_orders ORDER BY id`)
	return ids, err
}

func (r *PGRepository) ListByItem(ctx context.Context, itemID string) ([]model.WasteLog, error) {
	query := r.DB.Rebind(`
        SELECT external_log_id, inventory_item_id, quantity, unit, logged_at, reason
        FROM waste_logs
        WHERE inventory_item_id = ?
        ORDER BY logged_at, external_log_id
    `)
	var logs []model.WasteLog
	err := r.DB.SelectContext(ctx, &logs, query, itemID)
	return logs, err
}

func (r *PGRepository) ListItemIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.SelectContext(ctx, &ids, `SELECT DISTINCT inventory_item_id FROM waste_logs ORDER BY inventory_item_id`)
	return ids, err
}
