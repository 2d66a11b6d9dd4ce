package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/database"
	"github.com/jmoiron/sqlx"
)

const entryColumns = `id, inventory_item_id, kind, quantity_delta, unit, source_quantity, source_unit,
	unit_cost, total_cost, balance_before, balance_after, clamped,
	reference_type, reference_id, reference_number, reversal_of,
	is_reversed, reversed_date, reversal_reason, actor, notes, created_at`

const insertEntryQuery = `
    INSERT INTO ledger_entries (
        id, inventory_item_id, kind, quantity_delta, unit, source_quantity, source_unit,
        unit_cost, total_cost, balance_before, balance_after, clamped,
        reference_type, reference_id, reference_number, reversal_of,
        is_reversed, reversed_date, reversal_reason, actor, notes, created_at
    )
    VALUES (
        :id, :inventory_item_id, :kind, :quantity_delta, :unit, :source_quantity, :source_unit,
        :unit_cost, :total_cost, :balance_before, :balance_after, :clamped,
        :reference_type, :reference_id, :reference_number, :reversal_of,
        :is_reversed, :reversed_date, :reversal_reason, :actor, :notes, :created_at
    )
`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	query := r.DB.Rebind(`SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = ?`)
	err := r.DB.GetContext(ctx, &entry, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *PGRepository) ApplyEntry(ctx context.Context, item *model.InventoryItem, entry *model.LedgerEntry) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.applyEntry(ctx, tx, item, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) ApplyReversal(ctx context.Context, item *model.InventoryItem, original, compensating *model.LedgerEntry) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Flag the original, only if nobody else did
	res, err := tx.ExecContext(ctx, r.DB.Rebind(`
        UPDATE ledger_entries
        SET is_reversed = ?, reversed_date = ?, reversal_reason = ?
        WHERE id = ? AND is_reversed = ?
    `), true, original.ReversedDate, original.ReversalReason, original.ID, false)
	if err != nil {
		return fmt.Errorf("failed to flag reversed entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrAlreadyReversed
	}

	// 2. Compensating entry and balance
	if err := r.applyEntry(ctx, tx, item, compensating); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) applyEntry(ctx context.Context, tx *sqlx.Tx, item *model.InventoryItem, entry *model.LedgerEntry) error {
	res, err := tx.ExecContext(ctx, r.DB.Rebind(`
        UPDATE inventory_items
        SET on_hand_quantity = ?, status = ?, updated_at = ?
        WHERE id = ? AND on_hand_quantity = ?
    `), item.OnHandQuantity, string(item.Status), item.UpdatedAt, item.ID, entry.BalanceBefore)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrConcurrentUpdate
	}

	if _, err := tx.NamedExecContext(ctx, insertEntryQuery, entry); err != nil {
		if database.IsUniqueViolation(err) {
			return ledger.ErrDuplicateReference
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func activeConditions(f dto.ActiveFilter) ([]string, []interface{}) {
	conditions := []string{"is_reversed = ?"}
	args := []interface{}{false}

	if f.InventoryItemID != "" {
		conditions = append(conditions, "inventory_item_id = ?")
		args = append(args, f.InventoryItemID)
	}
	if f.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = ?")
		args = append(args, f.ReferenceType)
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = ?")
		args = append(args, f.ReferenceID)
	}
	return conditions, args
}

func (r *PGRepository) SumActive(ctx context.Context, f dto.ActiveFilter) (float64, error) {
	conditions, args := activeConditions(f)
	query := "SELECT COALESCE(SUM(quantity_delta), 0) FROM ledger_entries WHERE " + strings.Join(conditions, " AND ")

	var sum float64
	err := r.DB.GetContext(ctx, &sum, r.DB.Rebind(query), args...)
	return sum, err
}

func (r *PGRepository) FindActive(ctx context.Context, f dto.ActiveFilter) ([]model.LedgerEntry, error) {
	conditions, args := activeConditions(f)
	query := "SELECT " + entryColumns + " FROM ledger_entries WHERE " + strings.Join(conditions, " AND ") + " ORDER BY created_at ASC"

	var entries []model.LedgerEntry
	err := r.DB.SelectContext(ctx, &entries, r.DB.Rebind(query), args...)
	return entries, err
}

func (r *PGRepository) ExistsByReference(ctx context.Context, kind model.LedgerKind, referenceType, referenceID string) (bool, error) {
	query := r.DB.Rebind(`
        SELECT count(*) FROM ledger_entries
        WHERE kind = ? AND reference_type = ? AND reference_id = ?
    `)
	var count int
	if err := r.DB.GetContext(ctx, &count, query, string(kind), referenceType, referenceID); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PGRepository) ListEntries(ctx context.Context, f *dto.EntryFilters) ([]model.LedgerEntry, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.InventoryItemID != "" {
		conditions = append(conditions, "inventory_item_id = ?")
		args = append(args, f.InventoryItemID)
	}
	if f.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = ?")
		args = append(args, f.ReferenceType)
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = ?")
		args = append(args, f.ReferenceID)
	}
	if !f.IncludeReversed {
		conditions = append(conditions, "is_reversed = ?")
		args = append(args, false)
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, *f.EndDate)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery := r.DB.Rebind("SELECT count(*) FROM ledger_entries" + whereClause)
	if err := r.DB.GetContext(ctx, &count, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + entryColumns + " FROM ledger_entries" + whereClause + " ORDER BY created_at DESC, id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	var entries []model.LedgerEntry
	err := r.DB.SelectContext(ctx, &entries, r.DB.Rebind(query), args...)
	return entries, count, err
}
