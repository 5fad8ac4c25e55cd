// Package pricing estimates request cost from a static per-1K-token rate table.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultModel is the table row used for models without their own rates.
const DefaultModel = "default"

var thousand = decimal.NewFromInt(1000)

// Rate is the USD price per 1000 units. Search is zero for models that do not
// bill web searches.
type Rate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
	Search decimal.Decimal
}

// BillsSearches reports whether the rate has a search component.
func (r Rate) BillsSearches() bool {
	return r.Search.IsPositive()
}

func rate(input, output, search string) Rate {
	return Rate{
		Input:  decimal.RequireFromString(input),
		Output: decimal.RequireFromString(output),
		Search: decimal.RequireFromString(search),
	}
}

var defaultRates = map[string]Rate{
	"openai/gpt-4o":                     rate("0.005", "0.015", "0"),
	"openai/gpt-4o-mini":                rate("0.00015", "0.0006", "0"),
	"openai/gpt-4":                      rate("0.03", "0.06", "0"),
	"anthropic/claude-3-5-sonnet":       rate("0.003", "0.015", "0"),
	"anthropic/claude-3.7-sonnet":       rate("0.003", "0.015", "0"),
	"anthropic/claude-3-haiku":          rate("0.00025", "0.00125", "0"),
	"meta-llama/llama-3.1-70b-instruct": rate("0.0004", "0.0004", "0"),
	"meta-llama/llama-3.1-8b-instruct":  rate("0.0001", "0.0001", "0"),
	"perplexity/sonar-deep-research":    rate("0.005", "0.005", "5.0"),
	"perplexity/sonar-reasoning":        rate("0.001", "0.001", "0.005"),
	DefaultModel:                        rate("0.001", "0.002", "0"),
}

// Table maps model identifiers to rates. Lookups are case-insensitive.
type Table struct {
	rates map[string]Rate
}

// DefaultTable returns the built-in rate table.
func DefaultTable() *Table {
	return NewTable(defaultRates)
}

// NewTable builds a table from rates. rates must contain a DefaultModel row;
// if it does not, the built-in default row is used.
func NewTable(rates map[string]Rate) *Table {
	t := &Table{rates: make(map[string]Rate, len(rates)+1)}
	for model, r := range rates {
		t.rates[strings.ToLower(model)] = r
	}
	if _, ok := t.rates[DefaultModel]; !ok {
		t.rates[DefaultModel] = defaultRates[DefaultModel]
	}
	return t
}

// Lookup returns the rate for model and whether it has its own row. Unknown
// models get the default row.
func (t *Table) Lookup(model string) (Rate, bool) {
	if r, ok := t.rates[strings.ToLower(model)]; ok {
		return r, true
	}
	return t.rates[DefaultModel], false
}

// Estimate is the cost breakdown of a single request.
type Estimate struct {
	Model      string
	KnownModel bool
	InputCost  decimal.Decimal
	OutputCost decimal.Decimal
	SearchCost decimal.Decimal
	TotalCost  decimal.Decimal
}

// Estimate prices tokensIn, tokensOut and searches for model. Searches are only
// billed when the model's rate has a search component.
func (t *Table) Estimate(model string, tokensIn, tokensOut, searches int) Estimate {
	r, known := t.Lookup(model)

	e := Estimate{
		Model:      model,
		KnownModel: known,
		InputCost:  perThousand(tokensIn, r.Input),
		OutputCost: perThousand(tokensOut, r.Output),
		SearchCost: decimal.Zero,
	}
	if searches > 0 && r.BillsSearches() {
		e.SearchCost = perThousand(searches, r.Search)
	}
	e.TotalCost = e.InputCost.Add(e.OutputCost).Add(e.SearchCost)
	return e
}

func perThousand(units int, price decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(units)).Div(thousand).Mul(price)
}

// FormatUSD renders an amount as "$" followed by six decimal places.
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(6)
}
