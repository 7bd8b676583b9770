package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Knetic/govaluate"
)

// RuleSet holds per-command-type admission expressions compiled from match
// settings. Expressions are evaluated against the flattened payload fields
// and must yield a boolean. Evaluation is pure, so every peer reaches the
// same verdict for the same wire bytes.
type RuleSet struct {
	exprs map[Type]*govaluate.EvaluableExpression
}

type settingsRules struct {
	CommandRules map[string]string `json:"commandRules"`
}

// CompileRules builds a RuleSet from the match settings blob. Settings
// without a commandRules section yield a nil RuleSet.
func CompileRules(settings json.RawMessage) (*RuleSet, error) {
	if len(settings) == 0 {
		return nil, nil
	}
	var s settingsRules
	if err := json.Unmarshal(settings, &s); err != nil {
		return nil, fmt.Errorf("invalid match settings: %w", err)
	}
	if len(s.CommandRules) == 0 {
		return nil, nil
	}
	exprs := make(map[Type]*govaluate.EvaluableExpression, len(s.CommandRules))
	for tag, cond := range s.CommandRules {
		t := Type(tag)
		if !Known(t) {
			return nil, fmt.Errorf("admission rule for unknown command type %q", tag)
		}
		expr, err := govaluate.NewEvaluableExpression(cond)
		if err != nil {
			return nil, fmt.Errorf("admission rule for %q: %w", tag, err)
		}
		exprs[t] = expr
	}
	return &RuleSet{exprs: exprs}, nil
}

// Admit evaluates the rule for cmd's type, if any. Types without a rule are
// admitted.
func (r *RuleSet) Admit(cmd Command) (bool, error) {
	if r == nil {
		return true, nil
	}
	expr, ok := r.exprs[cmd.Type]
	if !ok {
		return true, nil
	}
	params, err := payloadParams(cmd.Payload)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("admission rule did not evaluate to boolean")
	}
}

func payloadParams(p Payload) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	if p == nil {
		return params, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if m, ok := raw.(map[string]interface{}); ok {
		for k, v := range m {
			params[k] = v
		}
		flattenParams("", m, params)
	}
	return params, nil
}

func flattenParams(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		out[key] = v
		if nested, ok := v.(map[string]interface{}); ok {
			flattenParams(key, nested, out)
		}
	}
}
