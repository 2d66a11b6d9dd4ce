package handler

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/reconcile"
	"github.com/fekuna/omnipos-inventory-ledger/internal/reconcile/dto"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "omnipos.inventory.v1.ReconcileService"

type OrderRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type ItemRequest struct {
	InventoryItemID string `json:"inventory_item_id"`
}

type ReconcileAllRequest struct{}

type ReconcileAllResponse struct {
	Receiving *dto.ReconcileResult `json:"receiving"`
	Waste     *dto.ReconcileResult `json:"waste"`
}

type ReconcileHandler struct {
	uc     reconcile.UseCase
	logger logger.ZapLogger
}

func NewReconcileHandler(uc reconcile.UseCase, log logger.ZapLogger) *ReconcileHandler {
	return &ReconcileHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ReconcileHandler) ServiceDesc() *grpc.ServiceDesc {
	return rpc.ServiceDesc(ServiceName,
		rpc.UnaryMethod(ServiceName, "ReconcileReceiving", h.ReconcileReceiving),
		rpc.UnaryMethod(ServiceName, "ReverseReceivingForOrder", h.ReverseReceivingForOrder),
		rpc.UnaryMethod(ServiceName, "ReconcileWaste", h.ReconcileWaste),
		rpc.UnaryMethod(ServiceName, "ReconcileAll", h.ReconcileAll),
	)
}

func (h *ReconcileHandler) ReconcileReceiving(ctx context.Context, req *OrderRequest) (*dto.ReconcileResult, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	result, err := h.uc.ReconcileReceiving(ctx, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return result, nil
}

func (h *ReconcileHandler) ReverseReceivingForOrder(ctx context.Context, req *OrderRequest) (*dto.ReconcileResult, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	reason := req.Reason
	if reason == "" {
		reason = reconcile.ReasonSourceInvalidated
	}
	result, err := h.uc.ReverseReceivingForOrder(ctx, req.OrderID, reason)
	if err != nil {
		return nil, toStatus(err)
	}
	return result, nil
}

func (h *ReconcileHandler) ReconcileWaste(ctx context.Context, req *ItemRequest) (*dto.ReconcileResult, error) {
	if req.InventoryItemID == "" {
		return nil, status.Error(codes.InvalidArgument, "inventory_item_id is required")
	}
	result, err := h.uc.ReconcileWaste(ctx, req.InventoryItemID)
	if err != nil {
		return nil, toStatus(err)
	}
	return result, nil
}

func (h *ReconcileHandler) ReconcileAll(ctx context.Context, _ *ReconcileAllRequest) (*ReconcileAllResponse, error) {
	receiving, err := h.uc.ReconcileAllReceiving(ctx)
	if err != nil {
		h.logger.Error("Receiving batch interrupted", zap.Error(err))
		return nil, toStatus(err)
	}
	waste, err := h.uc.ReconcileAllWaste(ctx)
	if err != nil {
		h.logger.Error("Waste batch interrupted", zap.Error(err))
		return nil, toStatus(err)
	}
	return &ReconcileAllResponse{Receiving: receiving, Waste: waste}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, reconcile.ErrOrderNotFound), errors.Is(err, inventory.ErrItemNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
