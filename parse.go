package kinetex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

const ruleFilename = "rule.hcl"

// ParseRule reads a rule body written in HCL expression syntax.
//
// A body is either a single expression:
//
//	k_cat * e0 * s / (k_m + s)
//
// or a sequence of attributes, each on its own line, where every attribute
// but the last is a local binding and the last one is the result:
//
//	v_max = k_cat * e0
//	rate  = v_max * s / (k_m + s)
//
// HCL has no power operator; pow(a, b) is read as a^b. Constructs with no
// mathematical rendering (templates, for expressions, indexing) are kept as
// Unsupported nodes and fail only when rendered.
func ParseRule(params []string, body string) (*Rule, error) {
	src := []byte(body)
	expr, exprDiags := hclsyntax.ParseExpression(src, ruleFilename, hcl.InitialPos)
	if !exprDiags.HasErrors() {
		return NewRule(params, convertExpr(expr, src))
	}

	file, diags := hclsyntax.ParseConfig(src, ruleFilename, hcl.InitialPos)
	if diags.HasErrors() {
		if !strings.Contains(strings.TrimSpace(body), "\n") {
			diags = exprDiags
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidRule, diags.Error())
	}
	syntaxBody, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected body type %T", ErrInvalidRule, file.Body)
	}
	if len(syntaxBody.Blocks) > 0 {
		return nil, fmt.Errorf("%w: blocks are not allowed in a rule body", ErrInvalidRule)
	}
	if len(syntaxBody.Attributes) == 0 {
		return nil, fmt.Errorf("%w: empty rule body", ErrInvalidRule)
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(syntaxBody.Attributes))
	for _, attr := range syntaxBody.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	bindings := make([]Binding, 0, len(attrs)-1)
	for _, attr := range attrs[:len(attrs)-1] {
		bindings = append(bindings, Binding{Name: attr.Name, Value: convertExpr(attr.Expr, src)})
	}
	result := convertExpr(attrs[len(attrs)-1].Expr, src)
	return NewRule(params, result, bindings...)
}

// MustParseRule is like ParseRule but panics on error.
func MustParseRule(params []string, body string) *Rule {
	r, err := ParseRule(params, body)
	if err != nil {
		panic(err)
	}
	return r
}

var binaryOps = map[*hclsyntax.Operation]Op{
	hclsyntax.OpAdd:                OpAdd,
	hclsyntax.OpSubtract:           OpSub,
	hclsyntax.OpMultiply:           OpMul,
	hclsyntax.OpDivide:             OpDiv,
	hclsyntax.OpModulo:             OpMod,
	hclsyntax.OpLessThan:           OpLT,
	hclsyntax.OpLessThanOrEqual:    OpLE,
	hclsyntax.OpGreaterThan:        OpGT,
	hclsyntax.OpGreaterThanOrEqual: OpGE,
	hclsyntax.OpEqual:              OpEQ,
	hclsyntax.OpNotEqual:           OpNE,
	hclsyntax.OpLogicalAnd:         OpAnd,
	hclsyntax.OpLogicalOr:          OpOr,
}

func convertExpr(e hclsyntax.Expression, src []byte) Expr {
	switch v := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		return convertLiteral(v, src)
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return UnsupportedOf("attribute access")
		}
		return S(v.Traversal.RootName())
	case *hclsyntax.ParenthesesExpr:
		return convertExpr(v.Expression, src)
	case *hclsyntax.UnaryOpExpr:
		inner := convertExpr(v.Val, src)
		switch v.Op {
		case hclsyntax.OpNegate:
			if n, ok := inner.(*Num); ok {
				return &Num{val: n.Rat().Neg(n.val)}
			}
			return NegOf(inner)
		case hclsyntax.OpLogicalNot:
			return NotOf(inner)
		}
		return UnsupportedOf("unary operator")
	case *hclsyntax.BinaryOpExpr:
		op, ok := binaryOps[v.Op]
		if !ok {
			return UnsupportedOf("binary operator")
		}
		return BinaryOf(op, convertExpr(v.LHS, src), convertExpr(v.RHS, src))
	case *hclsyntax.FunctionCallExpr:
		if v.ExpandFinal {
			return UnsupportedOf("argument expansion")
		}
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = convertExpr(a, src)
		}
		if v.Name == "pow" && len(args) == 2 {
			return PowOf(args[0], args[1])
		}
		return FuncOf(v.Name, args...)
	case *hclsyntax.ConditionalExpr:
		return CondOf(
			convertExpr(v.Condition, src),
			convertExpr(v.TrueResult, src),
			convertExpr(v.FalseResult, src),
		)
	case *hclsyntax.TemplateExpr, *hclsyntax.TemplateWrapExpr, *hclsyntax.TemplateJoinExpr:
		return UnsupportedOf("string template")
	case *hclsyntax.ForExpr:
		return UnsupportedOf("for expression")
	case *hclsyntax.IndexExpr, *hclsyntax.RelativeTraversalExpr:
		return UnsupportedOf("index expression")
	case *hclsyntax.SplatExpr:
		return UnsupportedOf("splat expression")
	case *hclsyntax.TupleConsExpr:
		return UnsupportedOf("tuple")
	case *hclsyntax.ObjectConsExpr:
		return UnsupportedOf("object")
	}
	return UnsupportedOf(fmt.Sprintf("%T", e))
}

// convertLiteral keeps the literal's source spelling so that decimals such as
// 0.1 stay exact instead of passing through a binary float.
func convertLiteral(v *hclsyntax.LiteralValueExpr, src []byte) Expr {
	if v.Val.IsNull() || !v.Val.IsKnown() {
		return UnsupportedOf("null literal")
	}
	if v.Val.Type() != cty.Number {
		return UnsupportedOf(v.Val.Type().FriendlyName() + " literal")
	}
	start, end := v.SrcRange.Start.Byte, v.SrcRange.End.Byte
	if start >= 0 && end <= len(src) && start < end {
		if n, ok := ParseNum(string(src[start:end])); ok {
			return n
		}
	}
	r, _ := v.Val.AsBigFloat().Rat(nil)
	return &Num{val: r}
}
