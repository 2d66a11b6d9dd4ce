package handler

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/auth"
	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "omnipos.inventory.v1.LedgerService"

type ListEntriesRequest struct {
	InventoryItemID string     `json:"inventory_item_id"`
	Kind            string     `json:"kind"`
	ReferenceType   string     `json:"reference_type"`
	ReferenceID     string     `json:"reference_id"`
	IncludeReversed bool       `json:"include_reversed"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	Page            int        `json:"page"`
	PageSize        int        `json:"page_size"`
}

type ListEntriesResponse struct {
	Entries []model.LedgerEntry `json:"entries"`
	Total   int                 `json:"total"`
}

type ReverseEntryRequest struct {
	EntryID string `json:"entry_id"`
	Reason  string `json:"reason"`
}

type ReverseEntryResponse struct {
	// Compensating is nil when the entry had already been reversed.
	Compensating *model.LedgerEntry `json:"compensating"`
}

type RecordCountRequest struct {
	InventoryItemID string  `json:"inventory_item_id"`
	CountedQuantity float64 `json:"counted_quantity"`
	Unit            string  `json:"unit"`
	ReferenceID     string  `json:"reference_id"`
	Notes           string  `json:"notes"`
}

type LedgerHandler struct {
	uc     ledger.UseCase
	logger logger.ZapLogger
}

func NewLedgerHandler(uc ledger.UseCase, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *LedgerHandler) ServiceDesc() *grpc.ServiceDesc {
	return rpc.ServiceDesc(ServiceName,
		rpc.UnaryMethod(ServiceName, "ListEntries", h.ListEntries),
		rpc.UnaryMethod(ServiceName, "ReverseEntry", h.ReverseEntry),
		rpc.UnaryMethod(ServiceName, "RecordCount", h.RecordCount),
	)
}

func (h *LedgerHandler) ListEntries(ctx context.Context, req *ListEntriesRequest) (*ListEntriesResponse, error) {
	filters := &dto.EntryFilters{
		InventoryItemID: req.InventoryItemID,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		IncludeReversed: req.IncludeReversed,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Page:            req.Page,
		PageSize:        req.PageSize,
	}
	if req.Kind != "" {
		kind, err := model.ParseLedgerKind(req.Kind)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		filters.Kind = kind
	}

	entries, count, err := h.uc.ListEntries(ctx, filters)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	return &ListEntriesResponse{Entries: entries, Total: count}, nil
}

func (h *LedgerHandler) ReverseEntry(ctx context.Context, req *ReverseEntryRequest) (*ReverseEntryResponse, error) {
	if req.EntryID == "" {
		return nil, status.Error(codes.InvalidArgument, "entry_id is required")
	}

	compensating, err := h.uc.Reverse(ctx, req.EntryID, req.Reason, auth.GetActor(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReverseEntryResponse{Compensating: compensating}, nil
}

func (h *LedgerHandler) RecordCount(ctx context.Context, req *RecordCountRequest) (*model.LedgerEntry, error) {
	entry, err := h.uc.RecordCount(ctx, &dto.CountInput{
		InventoryItemID: req.InventoryItemID,
		CountedQuantity: req.CountedQuantity,
		Unit:            req.Unit,
		ReferenceID:     req.ReferenceID,
		Actor:           auth.GetActor(ctx),
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return entry, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ledger.ErrEntryNotFound), errors.Is(err, inventory.ErrItemNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidEntry):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ledger.ErrConcurrentUpdate):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
