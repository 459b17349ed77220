package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Rule construction errors.
var (
	ErrConfidenceOutOfRange = errors.New("confidence must be between 0 and 1")
	ErrInvalidCondition     = errors.New("invalid rule condition")
	ErrMissingCategory      = errors.New("rule category is required")
)

// Confidence is a trust score in [0, 1]. The zero value is 0; any other value
// has to come from NewConfidence.
type Confidence struct {
	value float64
}

// NewConfidence validates v and wraps it.
func NewConfidence(v float64) (Confidence, error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return Confidence{}, fmt.Errorf("%w: got %v", ErrConfidenceOutOfRange, v)
	}
	return Confidence{value: v}, nil
}

// Float64 returns the underlying score.
func (c Confidence) Float64() float64 {
	return c.value
}

// String renders the confidence as a percentage.
func (c Confidence) String() string {
	return fmt.Sprintf("%.0f%%", c.value*100)
}

// Field names the transaction attribute a condition inspects.
type Field string

// Field constants.
const (
	FieldMerchant       Field = "merchant"
	FieldDescription    Field = "description"
	FieldAmount         Field = "amount"
	FieldType           Field = "type"
	FieldCounterpartyID Field = "counterpartyId"
)

// Fields lists every supported field.
var Fields = []Field{FieldMerchant, FieldDescription, FieldAmount, FieldType, FieldCounterpartyID}

// Operator is the comparison a condition applies.
type Operator string

// Operator constants.
const (
	OpEquals     Operator = "equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpRegex      Operator = "regex"
	OpGreater    Operator = "gt"
	OpLess       Operator = "lt"
	OpBetween    Operator = "between"
)

// Operators lists every supported operator.
var Operators = []Operator{OpEquals, OpContains, OpStartsWith, OpEndsWith, OpRegex, OpGreater, OpLess, OpBetween}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	switch f {
	case FieldMerchant, FieldDescription, FieldAmount, FieldType, FieldCounterpartyID:
		return true
	}
	return false
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith, OpRegex, OpGreater, OpLess, OpBetween:
		return true
	}
	return false
}

// Condition is a single field predicate.
type Condition struct {
	Field         Field    `json:"field"`
	Operator      Operator `json:"operator"`
	Value         string   `json:"value"`
	CaseSensitive bool     `json:"case_sensitive"`
}

// NewCondition validates the field and operator.
func NewCondition(field Field, op Operator, value string, caseSensitive bool) (Condition, error) {
	if !field.Valid() {
		return Condition{}, fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, field)
	}
	if !op.Valid() {
		return Condition{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, op)
	}
	return Condition{
		Field:         field,
		Operator:      op,
		Value:         value,
		CaseSensitive: caseSensitive,
	}, nil
}

// String renders the condition the way the CLI prints it.
func (c Condition) String() string {
	s := fmt.Sprintf("%s %s %q", c.Field, c.Operator, c.Value)
	if c.CaseSensitive {
		s += " (case sensitive)"
	}
	return s
}

// Rule assigns CategoryID to transactions matching Condition.
type Rule struct {
	CreatedAt  time.Time
	Name       string
	CategoryID string
	Condition  Condition
	Confidence Confidence
	ID         int
	Priority   int // Advisory ordering for humans; higher sorts first
	IsActive   bool
}

// NewRule builds an active rule, rejecting an out-of-range confidence or an
// invalid condition.
func NewRule(name, categoryID string, cond Condition, confidence float64, priority int) (Rule, error) {
	if strings.TrimSpace(categoryID) == "" {
		return Rule{}, ErrMissingCategory
	}
	conf, err := NewConfidence(confidence)
	if err != nil {
		return Rule{}, err
	}
	if _, err := NewCondition(cond.Field, cond.Operator, cond.Value, cond.CaseSensitive); err != nil {
		return Rule{}, err
	}
	return Rule{
		Name:       name,
		CategoryID: categoryID,
		Condition:  cond,
		Confidence: conf,
		Priority:   priority,
		IsActive:   true,
	}, nil
}
