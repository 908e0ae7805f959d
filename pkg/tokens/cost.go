package tokens

import "strings"

// modelPricing holds USD cost per 1K tokens
type modelPricing struct {
	input  float64
	output float64
}

// pricing per 1K tokens; unknown models fall back by family, then to the
// cheapest chat tier.
var pricing = map[string]modelPricing{
	"gpt-3.5-turbo": {input: 0.0005, output: 0.0015},
	"gpt-4":         {input: 0.03, output: 0.06},
	"gpt-4o":        {input: 0.005, output: 0.015},
	"gpt-4o-mini":   {input: 0.00015, output: 0.0006},
	"gpt-4-turbo":   {input: 0.01, output: 0.03},
	"llama-3.3-70b": {input: 0.0007, output: 0.0009},
	"deepseek-r1":   {input: 0.00014, output: 0.00028},
	"deepseek-v3":   {input: 0.00014, output: 0.00028},
}

// energy consumption per 1K tokens in kWh, rough estimates by model class
var energyFactors = map[string]float64{
	"gpt-4":         0.0003,
	"gpt-4o":        0.0003,
	"gpt-3.5-turbo": 0.00005,
	"gpt-4o-mini":   0.00005,
}

// carbonIntensity is the global average grid intensity in kg CO2e per kWh
const carbonIntensity = 0.475

// EstimateCost returns the estimated USD cost of an interaction
func EstimateCost(promptTokens, completionTokens int, model string) float64 {
	p, ok := pricing[model]
	if !ok {
		switch {
		case strings.Contains(model, "gpt-4"):
			p = pricing["gpt-4o"]
		case strings.Contains(model, "gpt-3.5"):
			p = pricing["gpt-3.5-turbo"]
		case strings.Contains(strings.ToLower(model), "llama"):
			p = pricing["llama-3.3-70b"]
		case strings.Contains(strings.ToLower(model), "deepseek"):
			p = pricing["deepseek-v3"]
		default:
			p = pricing["gpt-3.5-turbo"]
		}
	}

	inputCost := float64(promptTokens) / 1000 * p.input
	outputCost := float64(completionTokens) / 1000 * p.output
	return inputCost + outputCost
}

// EstimateCarbonFootprint returns the estimated kg CO2e for the interaction,
// from per-token energy estimates and average grid carbon intensity.
func EstimateCarbonFootprint(totalTokens int, model string) float64 {
	kwhPer1K, ok := energyFactors[model]
	if !ok {
		kwhPer1K = 0.00005
	}

	totalKWH := float64(totalTokens) / 1000 * kwhPer1K
	return totalKWH * carbonIntensity
}
