package session

import "fmt"

// GenerationConfig is the sampling setup sent with every invocation.
type GenerationConfig struct {
	Temperature     float64 `yaml:"temperature" json:"temperature"`
	TopP            float64 `yaml:"top_p" json:"top_p"`
	TopK            int     `yaml:"top_k" json:"top_k"`
	MaxOutputTokens int     `yaml:"max_output_tokens" json:"max_output_tokens"`
}

// Accepted ranges for GenerationConfig fields.
const (
	MinTemperature     = 0.0
	MaxTemperature     = 1.0
	MinTopP            = 0.1
	MaxTopP            = 1.0
	MinTopK            = 1
	MaxTopK            = 100
	MinMaxOutputTokens = 256
	MaxMaxOutputTokens = 2048
)

// DefaultGenerationConfig returns focused defaults suited to code review.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.3,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 1024,
	}
}

// Validate checks every field against its accepted range.
func (g GenerationConfig) Validate() error {
	if g.Temperature < MinTemperature || g.Temperature > MaxTemperature {
		return fmt.Errorf("%w: temperature %v not in [%v, %v]", ErrInvalidConfig, g.Temperature, MinTemperature, MaxTemperature)
	}
	if g.TopP < MinTopP || g.TopP > MaxTopP {
		return fmt.Errorf("%w: top_p %v not in [%v, %v]", ErrInvalidConfig, g.TopP, MinTopP, MaxTopP)
	}
	if g.TopK < MinTopK || g.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k %d not in [%d, %d]", ErrInvalidConfig, g.TopK, MinTopK, MaxTopK)
	}
	if g.MaxOutputTokens < MinMaxOutputTokens || g.MaxOutputTokens > MaxMaxOutputTokens {
		return fmt.Errorf("%w: max_output_tokens %d not in [%d, %d]", ErrInvalidConfig, g.MaxOutputTokens, MinMaxOutputTokens, MaxMaxOutputTokens)
	}
	return nil
}

// Config is what a Store needs to create a session.
type Config struct {
	Generation GenerationConfig
	// Code, when set, is embedded in the seed instruction as the code under review.
	Code string
}
