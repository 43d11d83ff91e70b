package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"

	"github.com/casbin/govaluate"
)

var ErrMissingCounter = errors.New("expression references a counter that was not sampled")

// MetricDefinition names an expression over sampled counters, e.g., "instructions / cycles".
// Counter names that are not valid identifiers are written in brackets, e.g.,
// "[LLC-load-misses] / [LLC-loads]".
type MetricDefinition struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

type Metric struct {
	Name  string
	Value float64
}

// Derive evaluates each definition against counters, in order.
func Derive(counters map[string]int64, definitions []MetricDefinition) ([]Metric, error) {
	functions := evaluatorFunctions()
	metrics := make([]Metric, 0, len(definitions))
	for _, definition := range definitions {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(definition.Expression, functions)
		if err != nil {
			return nil, fmt.Errorf("failed to parse metric %s: %w", definition.Name, err)
		}
		variables := make(map[string]any)
		for _, name := range expression.Vars() {
			count, ok := counters[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s in metric %s", ErrMissingCounter, name, definition.Name)
			}
			variables[name] = float64(count)
		}
		result, err := evaluateExpression(definition, expression, variables)
		if err != nil {
			return nil, err
		}
		value, ok := result.(float64)
		if !ok {
			return nil, fmt.Errorf("metric %s did not evaluate to a number: %v", definition.Name, result)
		}
		metrics = append(metrics, Metric{Name: definition.Name, Value: value})
	}
	return metrics, nil
}

// evaluateExpression catches panics that come from the evaluator
func evaluateExpression(definition MetricDefinition, expression *govaluate.EvaluableExpression, variables map[string]any) (result any, err error) {
	defer func() {
		if errx := recover(); errx != nil {
			err = fmt.Errorf("metric %s panicked: %v", definition.Name, errx)
		}
	}()
	if result, err = expression.Evaluate(variables); err != nil {
		err = fmt.Errorf("%v : %s : %s", err, definition.Name, definition.Expression)
	}
	return
}

// evaluatorFunctions defines functions that can be called in metric expressions
func evaluatorFunctions() map[string]govaluate.ExpressionFunction {
	functions := make(map[string]govaluate.ExpressionFunction)
	functions["max"] = func(args ...any) (any, error) {
		left, right, err := twoNumbers("max", args)
		if err != nil {
			return nil, err
		}
		return max(left, right), nil
	}
	functions["min"] = func(args ...any) (any, error) {
		left, right, err := twoNumbers("min", args)
		if err != nil {
			return nil, err
		}
		return min(left, right), nil
	}
	return functions
}

func twoNumbers(name string, args []any) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("%s takes 2 arguments, got %d", name, len(args))
	}
	var values [2]float64
	for i, arg := range args {
		switch t := arg.(type) {
		case int:
			values[i] = float64(t)
		case float64:
			values[i] = t
		default:
			return 0, 0, fmt.Errorf("%s: argument %d is not a number", name, i+1)
		}
	}
	return values[0], values[1], nil
}
