package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/recipe"
	"github.com/fekuna/omnipos-inventory-ledger/internal/recipe/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/units"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// floorTolerance absorbs conversion noise so 2.9999999999 servings count as 3.
const floorTolerance = 1e-9

type recipeUseCase struct {
	repo   recipe.Repository
	items  inventory.Repository
	logger logger.ZapLogger
}

func NewRecipeUseCase(repo recipe.Repository, items inventory.Repository, log logger.ZapLogger) recipe.UseCase {
	return &recipeUseCase{
		repo:   repo,
		items:  items,
		logger: log,
	}
}

func (uc *recipeUseCase) SaveMapping(ctx context.Context, mapping *model.MenuMapping) error {
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("%w: %v", recipe.ErrInvalidMapping, err)
	}
	for i := range mapping.Components {
		normalizeUnits(&mapping.Components[i])
	}
	if err := uc.repo.Upsert(ctx, mapping); err != nil {
		return fmt.Errorf("failed to save menu mapping: %w", err)
	}

	cycles, err := uc.DetectCycles(ctx, mapping.SellableID)
	if err != nil {
		return err
	}
	for _, cycle := range cycles {
		uc.logger.Warn("Menu mapping contains a cycle",
			zap.String("sellable_id", mapping.SellableID),
			zap.Strings("path", cycle),
		)
	}
	return nil
}

func normalizeUnits(c *model.Component) {
	c.Unit = units.Normalize(c.Unit)
	for i := range c.Overrides {
		normalizeUnits(&c.Overrides[i])
	}
}

func (uc *recipeUseCase) Explode(ctx context.Context, sellableID string, quantity float64, visited recipe.VisitedSet) (recipe.Requirements, error) {
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, fmt.Errorf("%w: %v", recipe.ErrInvalidQuantity, quantity)
	}
	if visited == nil {
		visited = recipe.NewVisitedSet()
	}

	acc := recipe.Requirements{}
	if err := uc.explode(ctx, sellableID, quantity, visited, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// explode adds sellableID's draws, scaled by multiplier, to acc. The id stays
// in visited only while its own components are being walked, so a shared
// sub-recipe reached along two branches counts twice while a path back to an
// ancestor stops.
func (uc *recipeUseCase) explode(ctx context.Context, sellableID string, multiplier float64, visited recipe.VisitedSet, acc recipe.Requirements) error {
	if visited.Has(sellableID) {
		return nil
	}
	visited.Add(sellableID)
	defer visited.Remove(sellableID)

	mapping, err := uc.repo.GetBySellableID(ctx, sellableID)
	if err != nil {
		return fmt.Errorf("failed to load menu mapping %s: %w", sellableID, err)
	}
	if mapping == nil {
		return nil
	}
	return uc.walk(ctx, mapping.Components, multiplier, visited, acc)
}

func (uc *recipeUseCase) walk(ctx context.Context, components []model.Component, multiplier float64, visited recipe.VisitedSet, acc recipe.Requirements) error {
	for _, c := range components {
		if err := ctx.Err(); err != nil {
			return err
		}
		scaled := multiplier * c.Quantity

		switch c.Kind {
		case model.ComponentInventory:
			acc.Add(c.InventoryItemID, units.Normalize(c.Unit), scaled)
		case model.ComponentMenu:
			var err error
			if len(c.Overrides) > 0 {
				err = uc.walk(ctx, c.Overrides, scaled, visited, acc)
			} else {
				err = uc.explode(ctx, c.NestedSellableID, scaled, visited, acc)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (uc *recipeUseCase) ComputeCost(ctx context.Context, sellableID string) (*dto.CostResult, error) {
	reqs, err := uc.Explode(ctx, sellableID, 1, recipe.NewVisitedSet())
	if err != nil {
		return nil, err
	}
	items, err := uc.loadItems(ctx, reqs)
	if err != nil {
		return nil, err
	}

	result := &dto.CostResult{
		SellableID: sellableID,
		TotalCost:  decimal.Zero,
		Complete:   true,
		Lines:      []dto.CostLine{},
	}
	total := decimal.Zero

	for _, itemID := range reqs.ItemIDs() {
		item, ok := items[itemID]
		for _, unit := range sortedUnits(reqs[itemID]) {
			quantity := reqs[itemID][unit]
			line := dto.CostLine{
				InventoryItemID: itemID,
				Quantity:        quantity,
				Unit:            unit,
				CostPerUnit:     decimal.Zero,
				Cost:            decimal.Zero,
			}
			if !ok {
				line.Missing = true
				result.Complete = false
				result.Lines = append(result.Lines, line)
				continue
			}

			converted, compatible := units.ConvertChecked(quantity, unitOr(unit, item.Unit), item.Unit)
			cost := item.CostPerUnit.Mul(decimal.NewFromFloat(converted))
			total = total.Add(cost)

			line.Name = item.Name
			line.ItemQuantity = converted
			line.ItemUnit = item.Unit
			line.CostPerUnit = item.CostPerUnit
			line.Cost = model.RoundCost(cost)
			line.Compatible = compatible
			if !compatible {
				result.Complete = false
			}
			result.Lines = append(result.Lines, line)
		}
	}

	result.TotalCost = model.RoundCost(total)
	if !result.Complete {
		uc.logger.Warn("Recipe cost is incomplete",
			zap.String("sellable_id", sellableID),
			zap.String("total_cost", result.TotalCost.String()),
		)
	}
	return result, nil
}

func (uc *recipeUseCase) ComputeCapacity(ctx context.Context, sellableID string) (*dto.CapacityResult, error) {
	reqs, err := uc.Explode(ctx, sellableID, 1, recipe.NewVisitedSet())
	if err != nil {
		return nil, err
	}

	result := &dto.CapacityResult{
		SellableID:               sellableID,
		Capacity:                 0,
		AllRequirementsHaveStock: false,
		Breakdown:                []dto.CapacityLine{},
	}
	// an empty recipe cannot be certified sellable
	if len(reqs) == 0 {
		return result, nil
	}

	items, err := uc.loadItems(ctx, reqs)
	if err != nil {
		return nil, err
	}

	for _, itemID := range reqs.ItemIDs() {
		item, ok := items[itemID]
		if !ok {
			for _, unit := range sortedUnits(reqs[itemID]) {
				result.Breakdown = append(result.Breakdown, dto.CapacityLine{
					InventoryItemID: itemID,
					Unit:            unit,
					RequiredPerSale: reqs[itemID][unit],
					Missing:         true,
				})
			}
			continue
		}
		result.Breakdown = append(result.Breakdown, capacityLines(item, reqs[itemID])...)
	}

	result.AllRequirementsHaveStock = true
	for i, line := range result.Breakdown {
		if i == 0 || line.Capacity < result.Capacity {
			result.Capacity = line.Capacity
		}
		if line.Missing || line.OnHand <= 0 || line.RequiredPerSale <= 0 {
			result.AllRequirementsHaveStock = false
		}
	}
	return result, nil
}

// capacityLines folds every unit convertible to the item's unit of record into
// one requirement; units that do not convert stay separate and are compared
// unconverted.
func capacityLines(item *model.InventoryItem, byUnit map[string]float64) []dto.CapacityLine {
	folded := dto.CapacityLine{
		InventoryItemID: item.ID,
		Name:            item.Name,
		Unit:            item.Unit,
		OnHand:          item.OnHandQuantity,
		Compatible:      true,
	}
	hasFolded := false
	var mismatched []dto.CapacityLine

	for _, unit := range sortedUnits(byUnit) {
		required, ok := units.ConvertChecked(byUnit[unit], unitOr(unit, item.Unit), item.Unit)
		if !ok {
			mismatched = append(mismatched, dto.CapacityLine{
				InventoryItemID: item.ID,
				Name:            item.Name,
				Unit:            unit,
				RequiredPerSale: required,
				OnHand:          item.OnHandQuantity,
				Compatible:      false,
			})
			continue
		}
		folded.RequiredPerSale += required
		hasFolded = true
	}

	var lines []dto.CapacityLine
	if hasFolded {
		lines = append(lines, folded)
	}
	lines = append(lines, mismatched...)
	for i := range lines {
		lines[i].Capacity = salesFrom(lines[i].OnHand, lines[i].RequiredPerSale)
	}
	return lines
}

func salesFrom(onHand, required float64) int64 {
	if onHand <= 0 || required <= 0 {
		return 0
	}
	return int64(math.Floor(onHand/required + floorTolerance))
}

func (uc *recipeUseCase) DetectCycles(ctx context.Context, sellableID string) ([][]string, error) {
	cycles := [][]string{}
	if err := uc.findCycles(ctx, sellableID, nil, &cycles); err != nil {
		return nil, err
	}
	return cycles, nil
}

func (uc *recipeUseCase) findCycles(ctx context.Context, sellableID string, path []string, cycles *[][]string) error {
	for i, id := range path {
		if id == sellableID {
			cycle := append(append([]string{}, path[i:]...), sellableID)
			*cycles = append(*cycles, cycle)
			return nil
		}
	}

	mapping, err := uc.repo.GetBySellableID(ctx, sellableID)
	if err != nil {
		return fmt.Errorf("failed to load menu mapping %s: %w", sellableID, err)
	}
	if mapping == nil {
		return nil
	}

	path = append(path, sellableID)
	for _, nested := range nestedIDs(mapping.Components) {
		if err := uc.findCycles(ctx, nested, path, cycles); err != nil {
			return err
		}
	}
	return nil
}

// nestedIDs lists the sellable items the components recurse into, following
// overrides in place of the item they override.
func nestedIDs(components []model.Component) []string {
	var ids []string
	for _, c := range components {
		if c.Kind != model.ComponentMenu {
			continue
		}
		if len(c.Overrides) > 0 {
			ids = append(ids, nestedIDs(c.Overrides)...)
			continue
		}
		ids = append(ids, c.NestedSellableID)
	}
	return ids
}

func (uc *recipeUseCase) loadItems(ctx context.Context, reqs recipe.Requirements) (map[string]*model.InventoryItem, error) {
	list, err := uc.items.BatchGetByIDs(ctx, reqs.ItemIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory items: %w", err)
	}
	items := make(map[string]*model.InventoryItem, len(list))
	for i := range list {
		items[list[i].ID] = &list[i]
	}
	return items, nil
}

func sortedUnits(byUnit map[string]float64) []string {
	keys := make([]string, 0, len(byUnit))
	for u := range byUnit {
		keys = append(keys, u)
	}
	sort.Strings(keys)
	return keys
}

// unitOr treats a component without a unit as drawn in the item's unit.
func unitOr(unit, fallback string) string {
	if unit == "" {
		return fallback
	}
	return unit
}
