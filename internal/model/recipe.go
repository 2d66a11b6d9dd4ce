package model

import (
	"errors"
	"fmt"
)

type ComponentKind string

const (
	ComponentInventory ComponentKind = "inventory"
	ComponentMenu      ComponentKind = "menu"
)

// MenuMapping lists what one sale of a sellable item draws from inventory,
// directly or through nested sellable items.
type MenuMapping struct {
	SellableID string      `json:"sellable_id" msgpack:"sellable_id"`
	Name       string      `json:"name" msgpack:"name"`
	Components []Component `json:"components" msgpack:"components"`
}

// Component is either an inventory draw (InventoryItemID, Unit) or a nested
// sellable item (NestedSellableID). Overrides, when present on a nested item,
// replace that item's own components for this use only.
type Component struct {
	Kind             ComponentKind `json:"kind" msgpack:"kind"`
	InventoryItemID  string        `json:"inventory_item_id,omitempty" msgpack:"inventory_item_id,omitempty"`
	NestedSellableID string        `json:"nested_sellable_id,omitempty" msgpack:"nested_sellable_id,omitempty"`
	Quantity         float64       `json:"quantity" msgpack:"quantity"`
	Unit             string        `json:"unit,omitempty" msgpack:"unit,omitempty"`
	Overrides        []Component   `json:"overrides,omitempty" msgpack:"overrides,omitempty"`
}

// Validate rejects component shapes the explosion engine cannot interpret.
func (c Component) Validate() error {
	switch c.Kind {
	case ComponentInventory:
		if c.InventoryItemID == "" {
			return errors.New("inventory component without inventory_item_id")
		}
		if len(c.Overrides) > 0 {
			return errors.New("inventory component cannot carry overrides")
		}
	case ComponentMenu:
		if c.NestedSellableID == "" {
			return errors.New("menu component without nested_sellable_id")
		}
	default:
		return fmt.Errorf("unknown component kind %q", c.Kind)
	}
	if c.Quantity < 0 {
		return fmt.Errorf("component quantity cannot be negative, got %v", c.Quantity)
	}
	for i, o := range c.Overrides {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("override %d: %w", i, err)
		}
	}
	return nil
}

func (m *MenuMapping) Validate() error {
	if m.SellableID == "" {
		return errors.New("sellable id cannot be empty")
	}
	for i, c := range m.Components {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return nil
}
