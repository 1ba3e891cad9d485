// Package pricing holds the static base-price table for service types.
package pricing

import (
	"fmt"

	"github.com/kilianp07/roadside/core/model"
)

// Table looks up the base price of a service type.
type Table interface {
	BasePrice(t model.ServiceType) (float64, error)
}

// DefaultPrice is used for service types missing from the table.
const DefaultPrice = 50.0

// DefaultPrices are the built-in base prices in BGN.
func DefaultPrices() map[model.ServiceType]float64 {
	return map[model.ServiceType]float64{
		model.ServiceFlatTyre:         40,
		model.ServiceOutOfFuel:        30,
		model.ServiceCarBattery:       60,
		model.ServiceTowTruck:         100,
		model.ServiceEmergency:        80,
		model.ServiceOtherCarProblems: 50,
		model.ServiceSupport:          50,
	}
}

// StaticTable is an immutable in-memory Table.
type StaticTable struct {
	prices map[model.ServiceType]float64
	def    float64
}

// NewStaticTable builds a table from overrides on top of DefaultPrices.
// Keys are parsed with model.ParseServiceType.
func NewStaticTable(overrides map[string]float64, def float64) (*StaticTable, error) {
	prices := DefaultPrices()
	for k, v := range overrides {
		st, err := model.ParseServiceType(k)
		if err != nil {
			return nil, fmt.Errorf("pricing: %w", err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("pricing: base price for %s must be positive", st)
		}
		prices[st] = v
	}
	if def <= 0 {
		def = DefaultPrice
	}
	return &StaticTable{prices: prices, def: def}, nil
}

// BasePrice returns the configured price or the table default.
func (t *StaticTable) BasePrice(st model.ServiceType) (float64, error) {
	if p, ok := t.prices[st]; ok {
		return p, nil
	}
	return t.def, nil
}
