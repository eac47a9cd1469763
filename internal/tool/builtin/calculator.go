package builtin

import (
	"context"
	"encoding/json"
	"math"

	"qroute/internal/tool"
)

// CalculatorName is the tool name offered to the model
const CalculatorName = "calculate"

const invalidExpression = "Invalid expression"

// maxExactInteger is the largest magnitude below which every integer is
// exactly representable as a float64
const maxExactInteger = 1 << 53

type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

func (t *CalculatorTool) Name() string {
	return CalculatorName
}

func (t *CalculatorTool) Description() string {
	return "Evaluate a mathematical expression"
}

func (t *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The mathematical expression to evaluate",
			},
		},
		"required": []string{"expression"},
	}
}

func (t *CalculatorTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	var p struct {
		Expression string `json:"expression"`
	}

	if err := json.Unmarshal(params, &p); err != nil {
		return tool.ErrorResult(invalidExpression), nil
	}

	return Calculate(p.Expression), nil
}

// Calculate evaluates expression and returns {"result": n} or
// {"error": "Invalid expression"}
func Calculate(expression string) *tool.Result {
	v, err := Evaluate(expression)
	if err != nil {
		res := tool.ErrorResult(invalidExpression)
		res.Data = map[string]any{"detail": err.Error()}
		return res
	}

	res := tool.JSONResult(map[string]any{"result": numberValue(v)})
	res.Data = map[string]any{"value": v}
	return res
}

// numberValue renders integral values without a fractional part
func numberValue(v float64) any {
	if v == math.Trunc(v) && math.Abs(v) < maxExactInteger {
		return int64(v)
	}
	return v
}
