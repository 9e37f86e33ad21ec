// Package evalexpr folds cbuf constant expressions — the integer and
// float defaults and array sizes described in spec.md §4.B — down to a
// single numeric Value.
package evalexpr

import (
	"fmt"
	"math"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
)

// Error is an EvalError: a non-constant or out-of-range expression.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Value is the result of folding a constant expression: exactly one
// of Int or Float is meaningful, selected by IsFloat.
type Value struct {
	IsFloat bool
	Int     int64
	Float   float64
}

// AsFloat returns the value widened to float64 regardless of kind.
func (v Value) AsFloat() float64 {
	if v.IsFloat {
		return v.Float
	}
	return float64(v.Int)
}

// Scope resolves a bare const identifier to its already-folded value.
// Callers build one incrementally as the parser walks declarations in
// order, per spec.md §4.C ("const ... scoped to enclosing namespace").
type Scope struct {
	values map[string]Value
}

// NewScope creates an empty constant scope.
func NewScope() *Scope {
	return &Scope{values: make(map[string]Value)}
}

// Define records a folded const value under name. Redefinition
// overwrites, matching ordinary declare-before-use shadowing; the
// parser does not check for duplicate const names, so a later const
// of the same name in the same scope replaces the earlier value.
func (s *Scope) Define(name string, v Value) {
	s.values[name] = v
}

// Lookup returns the value of a previously defined const.
func (s *Scope) Lookup(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Snapshot returns a copy of the scope's name -> value table, for
// callers that need to layer several scopes together.
func (s *Scope) Snapshot() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Eval folds expr using scope to resolve Ident references. Integer
// division truncates toward zero; mixing an int and a float operand
// promotes the whole expression to float, matching spec.md §4.B.
func Eval(expr ast.Expr, scope *Scope) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return Value{Int: e.Value}, nil

	case *ast.FloatLiteral:
		return Value{IsFloat: true, Float: e.Value}, nil

	case *ast.Ident:
		if scope != nil {
			if v, ok := scope.Lookup(e.Name); ok {
				return v, nil
			}
		}
		return Value{}, errf("%s: reference to undeclared constant %q", e.Span(), e.Name)

	case *ast.UnaryExpr:
		v, err := Eval(e.Operand, scope)
		if err != nil {
			return Value{}, err
		}
		if v.IsFloat {
			return Value{IsFloat: true, Float: -v.Float}, nil
		}
		return Value{Int: -v.Int}, nil

	case *ast.BinaryExpr:
		left, err := Eval(e.Left, scope)
		if err != nil {
			return Value{}, err
		}
		right, err := Eval(e.Right, scope)
		if err != nil {
			return Value{}, err
		}
		return evalBinary(e, left, right)

	default:
		return Value{}, errf("%s: not a constant expression", expr.Span())
	}
}

func evalBinary(e *ast.BinaryExpr, left, right Value) (Value, error) {
	if left.IsFloat || right.IsFloat {
		l, r := left.AsFloat(), right.AsFloat()
		switch e.Op {
		case ast.OpAdd:
			return Value{IsFloat: true, Float: l + r}, nil
		case ast.OpSub:
			return Value{IsFloat: true, Float: l - r}, nil
		case ast.OpMul:
			return Value{IsFloat: true, Float: l * r}, nil
		case ast.OpDiv:
			if r == 0 {
				return Value{}, errf("%s: division by zero", e.Span())
			}
			return Value{IsFloat: true, Float: l / r}, nil
		}
	}

	l, r := left.Int, right.Int
	switch e.Op {
	case ast.OpAdd:
		return Value{Int: l + r}, nil
	case ast.OpSub:
		return Value{Int: l - r}, nil
	case ast.OpMul:
		return Value{Int: l * r}, nil
	case ast.OpDiv:
		if r == 0 {
			return Value{}, errf("%s: division by zero", e.Span())
		}
		// Go's integer division already truncates toward zero.
		return Value{Int: l / r}, nil
	}
	return Value{}, errf("%s: unknown operator", e.Span())
}

// intRange holds the inclusive [min, max] range of a primitive integer
// type, keyed by its canonical or C-style spelling.
var intRange = map[string][2]int64{
	"u8": {0, math.MaxUint8}, "uint8_t": {0, math.MaxUint8},
	"u16": {0, math.MaxUint16}, "uint16_t": {0, math.MaxUint16},
	"u32": {0, math.MaxUint32}, "uint32_t": {0, math.MaxUint32},
	"s8": {math.MinInt8, math.MaxInt8}, "int8_t": {math.MinInt8, math.MaxInt8},
	"s16": {math.MinInt16, math.MaxInt16}, "int16_t": {math.MinInt16, math.MaxInt16},
	"s32": {math.MinInt32, math.MaxInt32}, "int32_t": {math.MinInt32, math.MaxInt32},
}

// CheckIntRange range-checks an integer constant against its field's
// declared primitive type. u64/s64 are accepted as-is (they span the
// full int64/uint64 domain already enforced by Go's type system).
func CheckIntRange(v int64, typeName string, span fmt.Stringer) error {
	if typeName == "u64" || typeName == "uint64_t" || typeName == "s64" || typeName == "int64_t" {
		return nil
	}
	r, ok := intRange[typeName]
	if !ok {
		return nil
	}
	if v < r[0] || v > r[1] {
		return errf("%s: value %d out of range for %s", span, v, typeName)
	}
	return nil
}
