package handler

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/recipe"
	"github.com/fekuna/omnipos-inventory-ledger/internal/recipe/dto"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "omnipos.inventory.v1.RecipeService"

type SellableRequest struct {
	SellableID string `json:"sellable_id"`
}

type ExplodeRequest struct {
	SellableID string  `json:"sellable_id"`
	Quantity   float64 `json:"quantity"`
}

type ExplodeResponse struct {
	SellableID   string              `json:"sellable_id"`
	Quantity     float64             `json:"quantity"`
	Requirements recipe.Requirements `json:"requirements"`
}

type CyclesResponse struct {
	SellableID string     `json:"sellable_id"`
	Cycles     [][]string `json:"cycles"`
}

type SaveMappingResponse struct {
	SellableID string `json:"sellable_id"`
}

type RecipeHandler struct {
	uc     recipe.UseCase
	logger logger.ZapLogger
}

func NewRecipeHandler(uc recipe.UseCase, log logger.ZapLogger) *RecipeHandler {
	return &RecipeHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *RecipeHandler) ServiceDesc() *grpc.ServiceDesc {
	return rpc.ServiceDesc(ServiceName,
		rpc.UnaryMethod(ServiceName, "ExplodeBOM", h.ExplodeBOM),
		rpc.UnaryMethod(ServiceName, "ComputeCost", h.ComputeCost),
		rpc.UnaryMethod(ServiceName, "ComputeCapacity", h.ComputeCapacity),
		rpc.UnaryMethod(ServiceName, "DetectCycles", h.DetectCycles),
		rpc.UnaryMethod(ServiceName, "SaveMapping", h.SaveMapping),
	)
}

func (h *RecipeHandler) ExplodeBOM(ctx context.Context, req *ExplodeRequest) (*ExplodeResponse, error) {
	if req.SellableID == "" {
		return nil, status.Error(codes.InvalidArgument, "sellable_id is required")
	}
	reqs, err := h.uc.Explode(ctx, req.SellableID, req.Quantity, recipe.NewVisitedSet())
	if err != nil {
		return nil, toStatus(err)
	}
	return &ExplodeResponse{SellableID: req.SellableID, Quantity: req.Quantity, Requirements: reqs}, nil
}

func (h *RecipeHandler) ComputeCost(ctx context.Context, req *SellableRequest) (*dto.CostResult, error) {
	if req.SellableID == "" {
		return nil, status.Error(codes.InvalidArgument, "sellable_id is required")
	}
	result, err := h.uc.ComputeCost(ctx, req.SellableID)
	if err != nil {
		return nil, toStatus(err)
	}
	return result, nil
}

func (h *RecipeHandler) ComputeCapacity(ctx context.Context, req *SellableRequest) (*dto.CapacityResult, error) {
	if req.SellableID == "" {
		return nil, status.Error(codes.InvalidArgument, "sellable_id is required")
	}
	result, err := h.uc.ComputeCapacity(ctx, req.SellableID)
	if err != nil {
		return nil, toStatus(err)
	}
	return result, nil
}

func (h *RecipeHandler) DetectCycles(ctx context.Context, req *SellableRequest) (*CyclesResponse, error) {
	if req.SellableID == "" {
		return nil, status.Error(codes.InvalidArgument, "sellable_id is required")
	}
	cycles, err := h.uc.DetectCycles(ctx, req.SellableID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CyclesResponse{SellableID: req.SellableID, Cycles: cycles}, nil
}

func (h *RecipeHandler) SaveMapping(ctx context.Context, req *model.MenuMapping) (*SaveMappingResponse, error) {
	if err := h.uc.SaveMapping(ctx, req); err != nil {
		return nil, toStatus(err)
	}
	return &SaveMappingResponse{SellableID: req.SellableID}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, recipe.ErrInvalidQuantity), errors.Is(err, recipe.ErrInvalidMapping):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
