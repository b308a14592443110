// Package ruleengine 基于 expr 表达式过滤合并候选航线。
package ruleengine

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

// Facts 表达式可见的候选航线字段。
type Facts struct {
	Flight      int
	Passengers  int
	Stops       int
	DistanceNM  float64
	NetProfit   float64
	Origin      string
	Destination string
}

// FactsOf 从航线提取表达式字段。
func FactsOf(r route.Route) Facts {
	return Facts{
		Flight:      r.Flight,
		Passengers:  r.Passengers,
		Stops:       r.StopCount(),
		DistanceNM:  r.DistanceNM,
		NetProfit:   r.NetProfit.ToFloat(),
		Origin:      r.Origin,
		Destination: r.Destination,
	}
}

// Engine 已编译的资格规则。表达式为空时全部放行。可并发使用。
type Engine struct {
	mu         sync.RWMutex
	expression string
	program    *vm.Program
}

// NewEngine 编译表达式，例如 `Passengers >= 20 && Stops < 3`。
func NewEngine(expression string) (*Engine, error) {
	e := &Engine{}
	if err := e.SetExpression(expression); err != nil {
		return nil, err
	}
	return e, nil
}

// SetExpression 替换规则，编译失败时保留原规则。
func (e *Engine) SetExpression(expression string) error {
	var program *vm.Program
	if expression != "" {
		p, err := expr.Compile(expression, expr.Env(Facts{}), expr.AsBool())
		if err != nil {
			return xerrors.Errorf(xerrors.ErrInvalidConfig, "compile eligibility rule %q", expression).WithCause(err)
		}
		program = p
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.expression = expression
	e.program = program
	return nil
}

// Expression 返回当前规则文本。
func (e *Engine) Expression() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expression
}

// Eligible 对候选航线求值。
func (e *Engine) Eligible(_ context.Context, candidate route.Route) (bool, error) {
	e.mu.RLock()
	program := e.program
	e.mu.RUnlock()

	if program == nil {
		return true, nil
	}
	output, err := expr.Run(program, FactsOf(candidate))
	if err != nil {
		return false, xerrors.WrapInternal(err, "evaluate eligibility rule").WithContext("flight", candidate.Flight)
	}
	passed, _ := output.(bool)
	return passed, nil
}
