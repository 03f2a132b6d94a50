package kinetex

import (
	"fmt"
	"strings"
)

// constants are symbols a rule may use without declaring them.
var constants = map[string]string{
	"pi": `\pi`,
	"e":  "e",
}

// funcMarkup maps function names to operator markup rendered in front of a
// parenthesised argument list.
var funcMarkup = map[string]string{
	"exp":   `\exp`,
	"log":   `\log`,
	"ln":    `\ln`,
	"log10": `\log_{10}`,
	"log2":  `\log_{2}`,
	"sin":   `\sin`,
	"cos":   `\cos`,
	"tan":   `\tan`,
	"sinh":  `\sinh`,
	"cosh":  `\cosh`,
	"tanh":  `\tanh`,
	"asin":  `\arcsin`,
	"acos":  `\arccos`,
	"atan":  `\arctan`,
	"min":   `\min`,
	"max":   `\max`,
}

// delimited maps unary functions that render as a delimiter pair.
var delimited = map[string][2]string{
	"sqrt":  {`\sqrt{ `, ` }`},
	"abs":   {`\left| `, ` \right|`},
	"floor": {`\left\lfloor `, ` \right\rfloor`},
	"ceil":  {`\left\lceil `, ` \right\rceil`},
}

var relations = map[Op]string{
	OpLT: "<", OpLE: `\le`, OpGT: ">", OpGE: `\ge`, OpEQ: "=", OpNE: `\ne`,
	OpAnd: `\land`, OpOr: `\lor`,
}

// LaTeX renders e on its own, escaping every identifier.
func LaTeX(e Expr) (string, error) {
	c := &compiler{env: map[string]string{}}
	return c.latex(e)
}

// CompileRule renders the right-hand side of r with args, the resolved
// markup of each parameter, substituted positionally.
//
// With reduce set, bindings are inlined into one expression. Otherwise each
// binding becomes its own "name = value" line ahead of the final expression,
// lines separated by a LaTeX row break.
func CompileRule(r *Rule, args []string, reduce bool) (string, error) {
	if reduce {
		c, err := newRuleCompiler(r, args)
		if err != nil {
			return "", err
		}
		return c.latex(r.Inline())
	}
	steps, result, err := CompileRuleSteps(r, args)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(steps)+1)
	for _, st := range steps {
		lines = append(lines, st.Markup(false))
	}
	lines = append(lines, result)
	return strings.Join(lines, lineBreak+"\n"), nil
}

// CompileRuleSteps renders every binding of r as an equation of its own,
// followed by the result expression. Later steps refer to bindings by name.
func CompileRuleSteps(r *Rule, args []string) ([]Equation, string, error) {
	c, err := newRuleCompiler(r, args)
	if err != nil {
		return nil, "", err
	}
	steps := make([]Equation, 0, len(r.Bindings))
	for _, b := range r.Bindings {
		rhs, err := c.latex(b.Value)
		if err != nil {
			return nil, "", err
		}
		sym := Escape(b.Name)
		steps = append(steps, Equation{LHS: sym, RHS: rhs})
		c.env[b.Name] = sym
	}
	result, err := c.latex(r.Result)
	if err != nil {
		return nil, "", err
	}
	return steps, result, nil
}

func newRuleCompiler(r *Rule, args []string) (*compiler, error) {
	if len(args) != len(r.Params) {
		return nil, fmt.Errorf("%w: rule takes %d arguments, got %d", ErrArityMismatch, len(r.Params), len(args))
	}
	c := &compiler{env: make(map[string]string, len(args)+len(r.Bindings))}
	for i, p := range r.Params {
		c.env[p] = args[i]
	}
	return c, nil
}

type compiler struct {
	env map[string]string
}

func group(s string) string { return `\left( ` + s + ` \right)` }

// displayPrec is precedence as typeset: a fraction delimits itself.
func displayPrec(e Expr) int {
	if b, ok := e.(*Binary); ok && b.op == OpDiv {
		return precAtom
	}
	return precedence(e)
}

// startsNegative reports whether the markup of e opens with a minus sign.
func startsNegative(e Expr) bool {
	switch v := e.(type) {
	case *Num:
		return v.IsNegative()
	case *Neg:
		return true
	case *Binary:
		switch v.op {
		case OpAdd, OpSub, OpMul, OpMod:
			return displayPrec(v.left) >= v.op.precedence() && startsNegative(v.left)
		}
	}
	return false
}

// compositeNum reports whether e is a number typeset as a fraction or in
// scientific notation.
func compositeNum(e Expr) bool {
	n, ok := e.(*Num)
	return ok && strings.Contains(n.LaTeX(), `\`)
}

func leadsWithDigit(s string) bool {
	return s != "" && (s[0] >= '0' && s[0] <= '9' || s[0] == '.')
}

func (c *compiler) operand(e Expr, grouped bool) (string, error) {
	s, err := c.latex(e)
	if err != nil {
		return "", err
	}
	if grouped {
		return group(s), nil
	}
	return s, nil
}

func (c *compiler) latex(e Expr) (string, error) {
	switch v := e.(type) {
	case *Num:
		return v.LaTeX(), nil
	case *Sym:
		if m, ok := c.env[v.name]; ok {
			return m, nil
		}
		if m, ok := constants[v.name]; ok {
			return m, nil
		}
		return Escape(v.name), nil
	case *Neg:
		s, err := c.operand(v.x, displayPrec(v.x) < precMul || startsNegative(v.x))
		if err != nil {
			return "", err
		}
		return "-" + s, nil
	case *Not:
		s, err := c.operand(v.x, displayPrec(v.x) < precUnary)
		if err != nil {
			return "", err
		}
		return `\lnot ` + s, nil
	case *Binary:
		return c.binary(v)
	case *Call:
		return c.call(v)
	case *Conditional:
		cond, err := c.latex(v.cond)
		if err != nil {
			return "", err
		}
		then, err := c.latex(v.then)
		if err != nil {
			return "", err
		}
		otherwise, err := c.latex(v.otherwise)
		if err != nil {
			return "", err
		}
		return `\left\{ \begin{array}{ll} ` + then + `, & \mathrm{if} \ ` + cond +
			` \\ ` + otherwise + `, & \mathrm{otherwise} \end{array} \right.`, nil
	case *Unsupported:
		return "", &UnsupportedExpressionError{Construct: v.construct}
	case nil:
		return "", &UnsupportedExpressionError{Construct: "empty expression"}
	}
	return "", &UnsupportedExpressionError{Construct: fmt.Sprintf("%T", e)}
}

func (c *compiler) binary(b *Binary) (string, error) {
	lp, rp := displayPrec(b.left), displayPrec(b.right)
	switch b.op {
	case OpDiv:
		num, err := c.latex(b.left)
		if err != nil {
			return "", err
		}
		den, err := c.latex(b.right)
		if err != nil {
			return "", err
		}
		return `\frac{` + num + `}{` + den + `}`, nil

	case OpPow:
		lb, isBinary := b.left.(*Binary)
		baseIsFrac := isBinary && lb.op == OpDiv
		groupBase := lp < precAtom || baseIsFrac || startsNegative(b.left) || compositeNum(b.left)
		base, err := c.operand(b.left, groupBase)
		if err != nil {
			return "", err
		}
		if !groupBase && strings.Contains(base, "^") {
			base = "{" + base + "}"
		}
		exp, err := c.latex(b.right)
		if err != nil {
			return "", err
		}
		return base + "^{" + exp + "}", nil

	case OpAdd, OpSub:
		l, err := c.operand(b.left, lp < precAdd)
		if err != nil {
			return "", err
		}
		r, err := c.operand(b.right, rp < precAdd || (b.op == OpSub && rp == precAdd) || startsNegative(b.right))
		if err != nil {
			return "", err
		}
		return l + " " + b.op.String() + " " + r, nil

	case OpMul, OpMod:
		l, err := c.operand(b.left, lp < precMul)
		if err != nil {
			return "", err
		}
		groupRight := rp < precMul || startsNegative(b.right)
		if rb, ok := b.right.(*Binary); ok && rp == precMul && (b.op == OpMod || rb.op == OpMod) {
			groupRight = true
		}
		r, err := c.operand(b.right, groupRight)
		if err != nil {
			return "", err
		}
		if b.op == OpMod {
			return l + ` \bmod ` + r, nil
		}
		if _, isNum := b.left.(*Num); isNum && !leadsWithDigit(r) {
			return l + " " + r, nil
		}
		return l + ` \cdot ` + r, nil
	}

	rel, ok := relations[b.op]
	if !ok {
		return "", &UnsupportedExpressionError{Construct: "operator " + b.op.String()}
	}
	p := b.op.precedence()
	groupLeft, groupRight := lp < p, rp < p
	if p == precCmp {
		groupLeft, groupRight = lp <= p, rp <= p
	}
	l, err := c.operand(b.left, groupLeft)
	if err != nil {
		return "", err
	}
	r, err := c.operand(b.right, groupRight)
	if err != nil {
		return "", err
	}
	return l + " " + rel + " " + r, nil
}

func (c *compiler) call(f *Call) (string, error) {
	args := make([]string, len(f.args))
	for i, a := range f.args {
		s, err := c.latex(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	if d, ok := delimited[f.name]; ok {
		if len(args) != 1 {
			return "", &UnsupportedExpressionError{
				Construct: fmt.Sprintf("%s with %d arguments", f.name, len(args)),
			}
		}
		return d[0] + args[0] + d[1], nil
	}
	op, ok := funcMarkup[f.name]
	if !ok {
		op = `\mathrm{` + Escape(f.name) + `}`
	}
	return op + " " + group(strings.Join(args, ", ")), nil
}
