package cue

import (
	"fmt"
	"math"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	lua "github.com/yuin/gopher-lua"
)

// TengoCurve evaluates a tengo expression of x. A multi-line source is run
// as a program that must assign y.
//
// Compiled scripts are not safe for concurrent use; curves are evaluated
// from the dispatcher goroutine only.
type TengoCurve struct {
	Source   string
	compiled *tengo.Compiled
}

func NewTengoCurve(source string) (*TengoCurve, error) {
	src := strings.TrimSpace(source)
	if src == "" {
		return nil, fmt.Errorf("cue: empty tengo curve")
	}
	if !strings.Contains(src, "\n") {
		src = "y := (" + src + ")"
	}

	script := tengo.NewScript([]byte(src))
	if err := script.Add("x", 0.0); err != nil {
		return nil, err
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("cue: compile tengo curve: %w", err)
	}
	if !compiled.IsDefined("y") {
		return nil, fmt.Errorf("cue: tengo curve must assign y")
	}
	return &TengoCurve{Source: source, compiled: compiled}, nil
}

func (c *TengoCurve) Evaluate(x float64) (float64, error) {
	if c == nil || c.compiled == nil {
		return 0, fmt.Errorf("cue: nil tengo curve")
	}
	if err := c.compiled.Set("x", x); err != nil {
		return 0, err
	}
	if err := c.compiled.Run(); err != nil {
		return 0, fmt.Errorf("cue: run tengo curve: %w", err)
	}
	switch v := c.compiled.Get("y").Value().(type) {
	case float64:
		return finite(v)
	case int64:
		return float64(v), nil
	default:
		return 0, ErrCurveResult
	}
}

// LuaCurve evaluates a lua expression (or function body with return) of x.
type LuaCurve struct {
	Source string
	state  *lua.LState
	fn     lua.LValue
}

const luaCurveFunc = "__curve"

func NewLuaCurve(source string) (*LuaCurve, error) {
	body := strings.TrimSpace(source)
	if body == "" {
		return nil, fmt.Errorf("cue: empty lua curve")
	}
	if !strings.Contains(body, "return") {
		body = "return " + body
	}

	L := lua.NewState()
	chunk := fmt.Sprintf("function %s(x)\n%s\nend", luaCurveFunc, body)
	if err := L.DoString(chunk); err != nil {
		L.Close()
		return nil, fmt.Errorf("cue: compile lua curve: %w", err)
	}
	fn := L.GetGlobal(luaCurveFunc)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("cue: lua curve did not define a function")
	}
	return &LuaCurve{Source: source, state: L, fn: fn}, nil
}

func (c *LuaCurve) Evaluate(x float64) (float64, error) {
	if c == nil || c.state == nil {
		return 0, fmt.Errorf("cue: nil lua curve")
	}
	L := c.state
	if err := L.CallByParam(lua.P{Fn: c.fn, NRet: 1, Protect: true}, lua.LNumber(x)); err != nil {
		return 0, fmt.Errorf("cue: run lua curve: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, ErrCurveResult
	}
	return finite(float64(n))
}

// Close releases the interpreter state.
func (c *LuaCurve) Close() {
	if c == nil || c.state == nil {
		return
	}
	c.state.Close()
	c.state = nil
}

func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrCurveResult
	}
	return v, nil
}
