package generation

import (
	"github.com/upb/llm-router-lab/services/evaluators"
)

// Request asks for every model in Models to answer every input, and for every evaluator
// in Evaluators to score each answer. Models and evaluators are referenced by key.
type Request struct {
	Models     []string `json:"models" validate:"required,dive,required"`
	Inputs     []string `json:"inputs" validate:"required"`
	Evaluators []string `json:"evaluators,omitempty" validate:"omitempty,dive,required"`
}

// Generation is one model's answer to an input along with its scores.
type Generation struct {
	Model    string             `json:"model"`
	Response any                `json:"response"`
	Scores   []evaluators.Score `json:"scores"`
}

// Record groups every generation produced for one input text.
type Record struct {
	Input       string       `json:"input"`
	Generations []Generation `json:"generations"`
}
