package compare

import (
	"errors"
	"fmt"
)

// Strategy names accepted by Registry.Bind.
const (
	StrategySimple     = "simple"
	StrategyAmount     = "amount"
	StrategyDate       = "date"
	StrategyTotalPrice = "total_price"
	StrategyTaxPrice   = "tax_price"
)

// ErrUnknownStrategy is returned when a binding names a strategy that has
// not been registered. This is a configuration error and fails fast.
var ErrUnknownStrategy = errors.New("unknown comparator strategy")

// Registry maps field names to comparator strategies. Unbound field names
// resolve to Simple. A Registry is not safe for concurrent mutation;
// construct and bind once per evaluation session, then share read-only.
type Registry struct {
	strategies map[string]Comparator
	fields     map[string]string
}

// NewRegistry creates a registry with the built-in strategies and the
// default routing for the known amount-like and date-like field names.
func NewRegistry() *Registry {
	return &Registry{
		strategies: map[string]Comparator{
			StrategySimple:     Simple(),
			StrategyAmount:     Amount(),
			StrategyDate:       Date(),
			StrategyTotalPrice: AmountWithin(1.0),
			StrategyTaxPrice:   AmountWithinInclusive(10.0),
		},
		fields: map[string]string{
			"total_price":     StrategyTotalPrice,
			"tax_price":       StrategyTaxPrice,
			"sub_total":       StrategyAmount,
			"doc_date":        StrategyDate,
			"expiration_date": StrategyDate,
			"items.price":     StrategyAmount,
			"items.sub_total": StrategyAmount,
			"items.quantity":  StrategyAmount,
		},
	}
}

// AddStrategy registers a named comparator, overwriting any previous
// registration under the same name.
func (r *Registry) AddStrategy(name string, c Comparator) {
	r.strategies[name] = c
}

// Bind routes a field name to a registered strategy. Rebinding a field is
// an idempotent overwrite; naming an unregistered strategy is an error.
func (r *Registry) Bind(fieldName, strategy string) error {
	if _, ok := r.strategies[strategy]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	r.fields[fieldName] = strategy
	return nil
}

// Resolve returns the comparator bound to the field name, or Simple when
// the field has no binding.
func (r *Registry) Resolve(fieldName string) Comparator {
	if name, ok := r.fields[fieldName]; ok {
		return r.strategies[name]
	}
	return r.strategies[StrategySimple]
}
