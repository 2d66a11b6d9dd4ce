package handler

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/auth"
	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "omnipos.inventory.v1.InventoryService"

type GetItemRequest struct {
	ID string `json:"id"`
}

type ListLowStockRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type ListLowStockResponse struct {
	Items []model.InventoryItem `json:"items"`
	Total int                   `json:"total"`
}

type EnrollItemsRequest struct {
	Items []dto.ImportItemInput `json:"items"`
}

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) ServiceDesc() *grpc.ServiceDesc {
	return rpc.ServiceDesc(ServiceName,
		rpc.UnaryMethod(ServiceName, "GetItem", h.GetItem),
		rpc.UnaryMethod(ServiceName, "ListLowStock", h.ListLowStock),
		rpc.UnaryMethod(ServiceName, "EnrollItems", h.EnrollItems),
	)
}

func (h *InventoryHandler) GetItem(ctx context.Context, req *GetItemRequest) (*model.InventoryItem, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	item, err := h.uc.GetItem(ctx, req.ID)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return item, nil
}

func (h *InventoryHandler) ListLowStock(ctx context.Context, req *ListLowStockRequest) (*ListLowStockResponse, error) {
	items, count, err := h.uc.ListLowStock(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	return &ListLowStockResponse{Items: items, Total: count}, nil
}

func (h *InventoryHandler) EnrollItems(ctx context.Context, req *EnrollItemsRequest) (*dto.EnrollResult, error) {
	actor := auth.GetActor(ctx)
	for i := range req.Items {
		if req.Items[i].Actor == "" {
			req.Items[i].Actor = actor
		}
	}

	result, err := h.uc.EnrollItems(ctx, req.Items)
	if err != nil {
		h.logger.Error("Item enrolment aborted", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return result, nil
}
