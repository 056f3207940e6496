package llm

import "strings"

// Price is USD per one million tokens.
type Price struct {
	Input  float64
	Output float64
}

// FallbackModel is used for cost estimation when a model is not in the table.
const FallbackModel = "gpt-4o"

type Pricing map[string]Price

func DefaultPricing() Pricing {
	return Pricing{
		"gpt-4o":      {Input: 5.00, Output: 15.00},
		"gpt-4o-mini": {Input: 0.15, Output: 0.60},
		"gpt-4-turbo": {Input: 10.00, Output: 30.00},
	}
}

// Merge returns a copy of p with overrides applied.
func (p Pricing) Merge(overrides map[string]Price) Pricing {
	out := make(Pricing, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Lookup accepts provider-prefixed names such as "openai/gpt-4o-mini".
func (p Pricing) Lookup(model string) Price {
	m := strings.ToLower(strings.TrimSpace(model))
	if price, ok := p[m]; ok {
		return price
	}
	if i := strings.LastIndex(m, "/"); i >= 0 {
		if price, ok := p[m[i+1:]]; ok {
			return price
		}
	}
	return p[FallbackModel]
}

func (p Pricing) Cost(model string, inputTokens, outputTokens int) (inputCost, outputCost float64) {
	price := p.Lookup(model)
	return float64(inputTokens) * price.Input / 1e6, float64(outputTokens) * price.Output / 1e6
}
