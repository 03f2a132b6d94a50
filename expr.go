// Package kinetex renders the symbolic content of kinetic models as LaTeX.
//
// Design goals:
//   - Faithful transcription: expression trees are rendered exactly as written,
//     never simplified or rearranged
//   - One shared symbol-resolution chain for every identifier occurrence
//   - Deterministic output in model-declaration order
//   - Change-aware persistence so generated artifacts stay quiet in version control
package kinetex

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

// Expr is a node of a rule's expression tree.
type Expr interface {
	String() string
	Sub(varName string, value Expr) Expr
	Equal(other Expr) bool
	exprType() string
}

// Binding precedence, loosest first.
const (
	precCond = iota + 1
	precOr
	precAnd
	precCmp
	precAdd
	precMul
	precUnary
	precPow
	precAtom
)

// precedence reports how tightly e binds in plain infix form.
func precedence(e Expr) int {
	switch v := e.(type) {
	case *Num:
		if v.IsNegative() {
			return precUnary
		}
		return precAtom
	case *Neg, *Not:
		return precUnary
	case *Binary:
		return v.op.precedence()
	case *Conditional:
		return precCond
	}
	return precAtom
}

// ============================================================
// Num — exact rational number
// ============================================================

// maxDecimalDigits bounds the fractional digits printed before switching to
// scientific notation.
const maxDecimalDigits = 6

type Num struct{ val *big.Rat }

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("kinetex: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

// NFloat panics on NaN and infinities, which have no exact rational form.
func NFloat(f float64) *Num {
	r := new(big.Rat).SetFloat64(f)
	if r == nil {
		panic("kinetex: non-finite number")
	}
	return &Num{val: r}
}

// ParseNum reads a decimal, exponent or p/q literal exactly.
func ParseNum(s string) (*Num, bool) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return &Num{val: r}, true
}

func (n *Num) Sub(string, Expr) Expr { return n }
func (n *Num) Equal(other Expr) bool { o, ok := other.(*Num); return ok && n.val.Cmp(o.val) == 0 }
func (n *Num) exprType() string      { return "num" }
func (n *Num) Float64() float64      { f, _ := n.val.Float64(); return f }
func (n *Num) Rat() *big.Rat         { return new(big.Rat).Set(n.val) }
func (n *Num) IsNegative() bool      { return n.val.Sign() < 0 }

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	if prec, exact := n.val.FloatPrec(); exact {
		return n.val.FloatString(prec)
	}
	return n.val.RatString()
}

func (n *Num) LaTeX() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	if prec, exact := n.val.FloatPrec(); exact {
		if prec <= maxDecimalDigits {
			return n.val.FloatString(prec)
		}
		return scientific(n.Float64())
	}
	if d := n.val.Denom(); d.IsInt64() && d.Int64() <= 1000 {
		sign := ""
		v := new(big.Rat).Set(n.val)
		if v.Sign() < 0 {
			sign = "-"
			v.Neg(v)
		}
		return sign + `\frac{` + v.Num().String() + `}{` + v.Denom().String() + `}`
	}
	return scientific(n.Float64())
}

// scientific prints f in shortest form, turning exponent notation into
// m \cdot 10^{e}.
func scientific(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	mant, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	e, err := strconv.Atoi(exp)
	if err != nil {
		return s
	}
	if mant == "1" {
		return `10^{` + strconv.Itoa(e) + `}`
	}
	if mant == "-1" {
		return `-10^{` + strconv.Itoa(e) + `}`
	}
	return mant + ` \cdot 10^{` + strconv.Itoa(e) + `}`
}

// ============================================================
// Sym — symbol reference
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym             { return &Sym{name: name} }
func (s *Sym) String() string        { return s.name }
func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }
func (s *Sym) Name() string          { return s.name }
func (s *Sym) Sub(varName string, value Expr) Expr {
	if s.name == varName {
		return value
	}
	return s
}

// ============================================================
// Neg, Not — prefix operators
// ============================================================

type Neg struct{ x Expr }

func NegOf(x Expr) *Neg { return &Neg{x: x} }

func (n *Neg) String() string {
	if precedence(n.x) < precMul {
		return "-(" + n.x.String() + ")"
	}
	return "-" + n.x.String()
}
func (n *Neg) Sub(varName string, value Expr) Expr { return &Neg{x: n.x.Sub(varName, value)} }
func (n *Neg) Equal(other Expr) bool               { o, ok := other.(*Neg); return ok && n.x.Equal(o.x) }
func (n *Neg) exprType() string                    { return "neg" }
func (n *Neg) Operand() Expr                       { return n.x }

type Not struct{ x Expr }

func NotOf(x Expr) *Not { return &Not{x: x} }

func (n *Not) String() string {
	if precedence(n.x) < precUnary {
		return "!(" + n.x.String() + ")"
	}
	return "!" + n.x.String()
}
func (n *Not) Sub(varName string, value Expr) Expr { return &Not{x: n.x.Sub(varName, value)} }
func (n *Not) Equal(other Expr) bool               { o, ok := other.(*Not); return ok && n.x.Equal(o.x) }
func (n *Not) exprType() string                    { return "not" }
func (n *Not) Operand() Expr                       { return n.x }

// ============================================================
// Binary — infix operators
// ============================================================

type Op int

const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpLT
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
	OpAnd
	OpOr
)

var opSymbols = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpPow: "^",
	OpLT: "<", OpLE: "<=", OpGT: ">", OpGE: ">=", OpEQ: "==", OpNE: "!=",
	OpAnd: "&&", OpOr: "||",
}

func (o Op) String() string {
	if s, ok := opSymbols[o]; ok {
		return s
	}
	return "?"
}

func (o Op) precedence() int {
	switch o {
	case OpAdd, OpSub:
		return precAdd
	case OpMul, OpDiv, OpMod:
		return precMul
	case OpPow:
		return precPow
	case OpLT, OpLE, OpGT, OpGE, OpEQ, OpNE:
		return precCmp
	case OpAnd:
		return precAnd
	case OpOr:
		return precOr
	}
	return precAtom
}

// associative reports whether a right operand of equal precedence can be
// printed without grouping.
func (o Op) associative() bool { return o == OpAdd || o == OpMul || o == OpAnd || o == OpOr }

type Binary struct {
	op          Op
	left, right Expr
}

func BinaryOf(op Op, left, right Expr) *Binary { return &Binary{op: op, left: left, right: right} }

// AddOf folds terms left to right; it never collects or reorders them.
func AddOf(terms ...Expr) Expr     { return fold(OpAdd, N(0), terms) }
func MulOf(factors ...Expr) Expr   { return fold(OpMul, N(1), factors) }
func SubOf(a, b Expr) Expr         { return BinaryOf(OpSub, a, b) }
func DivOf(num, denom Expr) Expr   { return BinaryOf(OpDiv, num, denom) }
func PowOf(base, exp Expr) Expr    { return BinaryOf(OpPow, base, exp) }
func CmpOf(op Op, a, b Expr) Expr  { return BinaryOf(op, a, b) }
func (b *Binary) Op() Op           { return b.op }
func (b *Binary) Left() Expr       { return b.left }
func (b *Binary) Right() Expr      { return b.right }
func (b *Binary) exprType() string { return "binary" }

func fold(op Op, empty Expr, xs []Expr) Expr {
	if len(xs) == 0 {
		return empty
	}
	acc := xs[0]
	for _, x := range xs[1:] {
		acc = &Binary{op: op, left: acc, right: x}
	}
	return acc
}

func (b *Binary) String() string {
	p := b.op.precedence()
	l := b.left.String()
	if lp := precedence(b.left); lp < p || (b.op == OpPow && lp <= p) {
		l = "(" + l + ")"
	}
	r := b.right.String()
	if rp := precedence(b.right); rp < p || (rp == p && !b.op.associative() && b.op != OpPow) {
		r = "(" + r + ")"
	}
	return l + " " + b.op.String() + " " + r
}

func (b *Binary) Sub(varName string, value Expr) Expr {
	return &Binary{op: b.op, left: b.left.Sub(varName, value), right: b.right.Sub(varName, value)}
}

func (b *Binary) Equal(other Expr) bool {
	o, ok := other.(*Binary)
	return ok && b.op == o.op && b.left.Equal(o.left) && b.right.Equal(o.right)
}

// ============================================================
// Call — named function applications
// ============================================================

type Call struct {
	name string
	args []Expr
}

func FuncOf(name string, args ...Expr) *Call { return &Call{name: name, args: args} }

func ExpOf(arg Expr) Expr     { return FuncOf("exp", arg) }
func LnOf(arg Expr) Expr      { return FuncOf("ln", arg) }
func LogOf(arg Expr) Expr     { return FuncOf("log", arg) }
func SqrtOf(arg Expr) Expr    { return FuncOf("sqrt", arg) }
func AbsOf(arg Expr) Expr     { return FuncOf("abs", arg) }
func MinOf(args ...Expr) Expr { return FuncOf("min", args...) }
func MaxOf(args ...Expr) Expr { return FuncOf("max", args...) }

func (c *Call) String() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	return c.name + "(" + strings.Join(parts, ", ") + ")"
}

func (c *Call) Sub(varName string, value Expr) Expr {
	args := make([]Expr, len(c.args))
	for i, a := range c.args {
		args[i] = a.Sub(varName, value)
	}
	return &Call{name: c.name, args: args}
}

func (c *Call) Equal(other Expr) bool {
	o, ok := other.(*Call)
	if !ok || c.name != o.name || len(c.args) != len(o.args) {
		return false
	}
	for i := range c.args {
		if !c.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

func (c *Call) exprType() string { return "call" }
func (c *Call) FuncName() string { return c.name }
func (c *Call) Args() []Expr     { return c.args }

// ============================================================
// Conditional — cond ? then : else
// ============================================================

type Conditional struct{ cond, then, otherwise Expr }

func CondOf(cond, then, otherwise Expr) *Conditional {
	return &Conditional{cond: cond, then: then, otherwise: otherwise}
}

func (c *Conditional) String() string {
	return c.cond.String() + " ? " + c.then.String() + " : " + c.otherwise.String()
}

func (c *Conditional) Sub(varName string, value Expr) Expr {
	return &Conditional{
		cond:      c.cond.Sub(varName, value),
		then:      c.then.Sub(varName, value),
		otherwise: c.otherwise.Sub(varName, value),
	}
}

func (c *Conditional) Equal(other Expr) bool {
	o, ok := other.(*Conditional)
	return ok && c.cond.Equal(o.cond) && c.then.Equal(o.then) && c.otherwise.Equal(o.otherwise)
}

func (c *Conditional) exprType() string { return "cond" }

// ============================================================
// Unsupported — a construct with no mathematical rendering
// ============================================================

// Unsupported keeps a rule loadable when part of its body cannot be typeset.
// Rendering such a rule fails with an UnsupportedExpressionError.
type Unsupported struct{ construct string }

func UnsupportedOf(construct string) *Unsupported { return &Unsupported{construct: construct} }

func (u *Unsupported) String() string        { return "<" + u.construct + ">" }
func (u *Unsupported) Sub(string, Expr) Expr { return u }
func (u *Unsupported) Equal(other Expr) bool {
	o, ok := other.(*Unsupported)
	return ok && u.construct == o.construct
}
func (u *Unsupported) exprType() string  { return "unsupported" }
func (u *Unsupported) Construct() string { return u.construct }

// ============================================================
// Free Symbols
// ============================================================

func FreeSymbols(e Expr) map[string]struct{} {
	out := map[string]struct{}{}
	collectSymbols(e, out)
	return out
}

// SortedSymbols returns the free symbols of e in lexical order.
func SortedSymbols(e Expr) []string {
	set := FreeSymbols(e)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Neg:
		collectSymbols(v.x, out)
	case *Not:
		collectSymbols(v.x, out)
	case *Binary:
		collectSymbols(v.left, out)
		collectSymbols(v.right, out)
	case *Call:
		for _, a := range v.args {
			collectSymbols(a, out)
		}
	case *Conditional:
		collectSymbols(v.cond, out)
		collectSymbols(v.then, out)
		collectSymbols(v.otherwise, out)
	}
}
