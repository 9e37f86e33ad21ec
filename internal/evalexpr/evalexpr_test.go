package evalexpr

import (
	"testing"

	"github.com/mvi-llc/wasm-cbuf/internal/ast"
	"github.com/mvi-llc/wasm-cbuf/position"
)

func sp() position.Span { return position.Span{} }

func TestEvalIntegerFolding(t *testing.T) {
	// 3*4*(12*23) + 70/2
	lit := func(v int64) ast.Expr { return ast.NewIntLiteral(v, sp()) }
	mul := func(a, b ast.Expr) ast.Expr { return ast.NewBinaryExpr(ast.OpMul, a, b, sp()) }
	add := func(a, b ast.Expr) ast.Expr { return ast.NewBinaryExpr(ast.OpAdd, a, b, sp()) }
	div := func(a, b ast.Expr) ast.Expr { return ast.NewBinaryExpr(ast.OpDiv, a, b, sp()) }

	expr := add(mul(mul(lit(3), lit(4)), mul(lit(12), lit(23))), div(lit(70), lit(2)))
	v, err := Eval(expr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IsFloat || v.Int != 3347 {
		t.Fatalf("got %+v, want Int=3347", v)
	}
}

func TestEvalUnaryMinus(t *testing.T) {
	expr := ast.NewUnaryExpr(ast.NewIntLiteral(4, sp()), sp())
	v, err := Eval(expr, nil)
	if err != nil || v.Int != -4 {
		t.Fatalf("got %+v, err=%v", v, err)
	}
}

func TestEvalMixedFloatPromotion(t *testing.T) {
	// 2.0 * 3.4 / 2.7
	expr := ast.NewBinaryExpr(ast.OpDiv,
		ast.NewBinaryExpr(ast.OpMul, ast.NewFloatLiteral(2.0, sp()), ast.NewFloatLiteral(3.4, sp()), sp()),
		ast.NewFloatLiteral(2.7, sp()), sp())
	v, err := Eval(expr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsFloat {
		t.Fatalf("expected float result")
	}
	const want = 2.518518518518518
	if diff := v.Float - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("got %v, want %v", v.Float, want)
	}
}

func TestEvalConstReference(t *testing.T) {
	scope := NewScope()
	scope.Define("N", Value{Int: 16})
	v, err := Eval(ast.NewIdent("N", sp()), scope)
	if err != nil || v.Int != 16 {
		t.Fatalf("got %+v, err=%v", v, err)
	}
}

func TestEvalUndeclaredConst(t *testing.T) {
	_, err := Eval(ast.NewIdent("Missing", sp()), NewScope())
	if err == nil {
		t.Fatalf("expected error for undeclared constant")
	}
}

func TestCheckIntRange(t *testing.T) {
	if err := CheckIntRange(-4, "s16", position.Span{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckIntRange(300, "u8", position.Span{}); err == nil {
		t.Fatalf("expected range error")
	}
	if err := CheckIntRange(-1, "u32", position.Span{}); err == nil {
		t.Fatalf("expected range error")
	}
}
