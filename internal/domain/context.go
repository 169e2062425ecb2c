package domain

import (
	"encoding/json"
	"fmt"
)

// DecisionContext is the payload attached to a decision. At most one of the
// typed variants is set, selected by the decision type; Extra keeps any keys
// the variant does not own.
type DecisionContext struct {
	TaskAssignment *TaskAssignmentContext
	Restock        *RestockContext
	Optimization   *OptimizationContext
	Extra          map[string]any
}

type TaskAssignmentContext struct {
	TaskID    string `json:"task_id"`
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`
}

type RestockContext struct {
	ResourceID        string  `json:"resource_id"`
	ResourceName      string  `json:"resource_name,omitempty"`
	SuggestedQuantity float64 `json:"suggested_quantity"`
	Urgency           string  `json:"urgency"`
	Supplier          string  `json:"supplier,omitempty"`
}

type OptimizationContext struct {
	Area            string `json:"area"`
	EstimatedImpact string `json:"estimated_impact"`
}

func (c DecisionContext) variant() any {
	switch {
	case c.TaskAssignment != nil:
		return c.TaskAssignment
	case c.Restock != nil:
		return c.Restock
	case c.Optimization != nil:
		return c.Optimization
	}
	return nil
}

// Map flattens the context into a single object. Variant keys win over Extra.
func (c DecisionContext) Map() (map[string]any, error) {
	out := make(map[string]any, len(c.Extra)+4)
	for k, v := range c.Extra {
		out[k] = v
	}
	v := c.variant()
	if v == nil {
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var typed map[string]any
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	for k, val := range typed {
		out[k] = val
	}
	return out, nil
}

func (c DecisionContext) MarshalJSON() ([]byte, error) {
	m, err := c.Map()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// ParseDecisionContext decodes a flat context object into the variant owned
// by decisionType. Unknown decision types keep everything in Extra.
func ParseDecisionContext(decisionType string, raw []byte) (DecisionContext, error) {
	var c DecisionContext
	if len(raw) == 0 || string(raw) == "null" {
		return c, nil
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return c, fmt.Errorf("decode context: %w", err)
	}
	var target any
	switch decisionType {
	case DecisionTaskAssignment:
		c.TaskAssignment = &TaskAssignmentContext{}
		target = c.TaskAssignment
	case DecisionRestockAlert:
		c.Restock = &RestockContext{}
		target = c.Restock
	case DecisionOptimization:
		c.Optimization = &OptimizationContext{}
		target = c.Optimization
	}
	if target != nil {
		if err := json.Unmarshal(raw, target); err != nil {
			return c, fmt.Errorf("decode %s context: %w", decisionType, err)
		}
		for _, k := range variantKeys(decisionType) {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		c.Extra = all
	}
	return c, nil
}

// ContextFromMap is ParseDecisionContext for caller input: a value that does
// not fit the variant is a ValidationError on the context field.
func ContextFromMap(decisionType string, m map[string]any) (DecisionContext, error) {
	if len(m) == 0 {
		return DecisionContext{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return DecisionContext{}, Invalid("context", "%v", err)
	}
	c, err := ParseDecisionContext(decisionType, raw)
	if err != nil {
		return DecisionContext{}, Invalid("context", "%v", err)
	}
	return c, nil
}

func variantKeys(decisionType string) []string {
	switch decisionType {
	case DecisionTaskAssignment:
		return []string{"task_id", "staff_id", "staff_name", "task_title"}
	case DecisionRestockAlert:
		return []string{"resource_id", "resource_name", "suggested_quantity", "urgency", "supplier"}
	case DecisionOptimization:
		return []string{"area", "estimated_impact"}
	}
	return nil
}

// UnmarshalJSON resolves the context variant from decision_type.
func (d *AIDecision) UnmarshalJSON(data []byte) error {
	type alias AIDecision
	var aux struct {
		alias
		Context json.RawMessage `json:"context"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ctx, err := ParseDecisionContext(aux.DecisionType, aux.Context)
	if err != nil {
		return err
	}
	*d = AIDecision(aux.alias)
	d.Context = ctx
	return nil
}
