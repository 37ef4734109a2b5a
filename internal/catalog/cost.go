package catalog

import "math"

// Cost is the estimated USD cost of a single generation.
type Cost struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
}

// EstimateCost prices a generation from the catalog's per-million rates.
// Unknown and usage-billed models cost zero.
func (c *Catalog) EstimateCost(modelID string, inputTokens, outputTokens int) Cost {
	m, _ := c.PriceOf(modelID)

	in := float64(inputTokens) / 1_000_000 * m.InputPerMTok
	out := float64(outputTokens) / 1_000_000 * m.OutputPerMTok

	return Cost{
		Model:        modelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    round4(in),
		OutputCost:   round4(out),
		TotalCost:    round4(in + out),
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
