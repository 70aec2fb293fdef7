// Package rules evaluates CEL eligibility expressions against a flat variable map
// exposed as `employee`, for example:
//
//	employee.category == "NATIONAL" && employee.base_salary >= 5000.0
package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	ErrEmptyExpression = errors.New("expression required")
	ErrNotBoolean      = errors.New("expression must evaluate to bool")
	ErrInvalidRule     = errors.New("invalid rule expression")
)

// Variable is the name the expression sees.
const Variable = "employee"

// Engine compiles expressions once and caches the programs.
type Engine struct {
	env   *cel.Env
	cache sync.Map
}

func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable(Variable, cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel env: %w", err)
	}
	return &Engine{env: env}, nil
}

// Compile checks expr and caches its program.
func (e *Engine) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

// Match evaluates expr against vars.
func (e *Engine) Match(expr string, vars map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{Variable: vars})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, ErrNotBoolean
	}
	return v, nil
}

func (e *Engine) program(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyExpression
	}
	if cached, ok := e.cache.Load(expr); ok {
		return cached.(cel.Program), nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, ErrNotBoolean
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	e.cache.Store(expr, prg)
	return prg, nil
}
