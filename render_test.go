package kinetex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/kinetex"
)

var constantRate = kinetex.MustParseRule([]string{"k"}, "k")

// newChain builds the linear chain -> S -> P used across render tests.
func newChain(t *testing.T) *kinetex.Model {
	t.Helper()
	m := kinetex.NewModel()
	require.NoError(t, m.AddParameter("k_in", 1))
	require.NoError(t, m.AddParameter("k1", 0.5))
	require.NoError(t, m.AddVariable("S", 0))
	require.NoError(t, m.AddVariable("P", 0))
	require.NoError(t, m.AddReaction("v0", constantRate, []string{"k_in"},
		map[string]kinetex.Coefficient{"S": kinetex.Coef(1)}))
	require.NoError(t, m.AddReaction("v1", massAction, []string{"S", "k1"},
		map[string]kinetex.Coefficient{"S": kinetex.Coef(-1), "P": kinetex.Coef(1)}))
	return m
}

func odeLHS(symbol string) string {
	return `\frac{\mathrm{d}` + symbol + `}{\mathrm{d}t}`
}

// ============================================================
// Entity rendering
// ============================================================

func TestRender_Reaction(t *testing.T) {
	r := kinetex.NewRenderer(newChain(t))

	got, err := r.Render("v1")
	require.NoError(t, err)
	assert.Equal(t, `v1 &= k1 \cdot S`, got)

	got, err = r.Render("v1", kinetex.WithAlign(false))
	require.NoError(t, err)
	assert.Equal(t, `v1 = k1 \cdot S`, got)
}

func TestRender_ParameterIsBareSymbol(t *testing.T) {
	m := newChain(t)
	r := kinetex.NewRenderer(m)

	got, err := r.Render("k_in")
	require.NoError(t, err)
	assert.Equal(t, `k_{in}`, got, "raw identifier is escaped when nothing else names it")

	require.NoError(t, m.Symbols().Insert("k_in", `k_{\mathrm{in}}`))
	got, err = r.Render("k_in")
	require.NoError(t, err)
	assert.Equal(t, `k_{\mathrm{in}}`, got)
}

func TestRender_UnknownName(t *testing.T) {
	r := kinetex.NewRenderer(newChain(t))
	_, err := r.Render("v9")
	assert.ErrorIs(t, err, kinetex.ErrNameNotFound)
	_, err = r.Equation("k1")
	assert.ErrorIs(t, err, kinetex.ErrWrongKind)
}

func TestRender_ResolutionPrecedence(t *testing.T) {
	m := newChain(t)
	r := kinetex.NewRenderer(m)
	require.NoError(t, m.Symbols().InsertMany(map[string]string{
		"S":  `[\mathrm{S}]`,
		"k1": `k_{1}`,
		"v1": `v_{\mathrm{table}}`,
	}))

	got, err := r.Render("v1")
	require.NoError(t, err)
	assert.Equal(t, `v_{\mathrm{table}} &= k_{1} \cdot [\mathrm{S}]`, got, "table beats raw name")

	require.NoError(t, m.SetMath("v1", `v_{1}`))
	got, err = r.Render("v1")
	require.NoError(t, err)
	assert.Equal(t, `v_{1} &= k_{1} \cdot [\mathrm{S}]`, got, "math attribute beats table")

	got, err = r.Render("v1", kinetex.WithOverrides(map[string]string{"v1": "r", "S": "s"}))
	require.NoError(t, err)
	assert.Equal(t, `r &= k_{1} \cdot s`, got, "per-call override beats everything")

	got, err = r.Render("v1", kinetex.WithOverrides(map[string]string{"v1": ""}))
	require.NoError(t, err)
	assert.Equal(t, `v_{1} &= k_{1} \cdot [\mathrm{S}]`, got, "empty override counts as absent")
}

func TestRender_OverridesDoNotPersist(t *testing.T) {
	m := newChain(t)
	r := kinetex.NewRenderer(m)
	_, err := r.Render("v1", kinetex.WithOverrides(map[string]string{"S": "s"}))
	require.NoError(t, err)

	got, err := r.Render("v1")
	require.NoError(t, err)
	assert.Equal(t, `v1 &= k1 \cdot S`, got)
	assert.Equal(t, 0, m.Symbols().Len())
}

func TestRender_DerivedMathNamesArgument(t *testing.T) {
	m := newChain(t)
	total := kinetex.MustParseRule([]string{"a", "b"}, "a + b")
	require.NoError(t, m.AddDerived("total", total, []string{"S", "P"}, kinetex.WithMath(`S_{\mathrm{tot}}`)))
	require.NoError(t, m.AddDerived("twice", kinetex.MustParseRule([]string{"t"}, "2 * t"), []string{"total"}))

	got, err := kinetex.NewRenderer(m).Render("twice")
	require.NoError(t, err)
	assert.Equal(t, `twice &= 2 S_{\mathrm{tot}}`, got)
}

func TestRender_Identity(t *testing.T) {
	m := newChain(t)
	require.NoError(t, m.Symbols().Insert("k1", `k_{+1}`))

	got, err := kinetex.NewRenderer(m).Identity("k1")
	require.NoError(t, err)
	assert.Equal(t, `k1 &= k_{+1}`, got)
}

func TestRender_UnsupportedNamesEntity(t *testing.T) {
	m := newChain(t)
	require.NoError(t, m.AddDerived("bad", kinetex.MustParseRule([]string{"s"}, "[s, s]"), []string{"S"}))

	_, err := kinetex.NewRenderer(m).Render("bad")
	require.ErrorIs(t, err, kinetex.ErrUnsupportedExpression)
	var ue *kinetex.UnsupportedExpressionError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bad", ue.Entity)
	assert.Equal(t, "tuple", ue.Construct)
}

func TestRender_Unreduced(t *testing.T) {
	m := newChain(t)
	require.NoError(t, m.AddParameter("V", 2))
	require.NoError(t, m.AddParameter("K", 1))
	mm := kinetex.MustParseRule([]string{"s", "vmax", "km"}, `
sat  = s / (km + s)
rate = vmax * sat
`)
	require.NoError(t, m.AddDerived("d", mm, []string{"S", "V", "K"}))
	r := kinetex.NewRenderer(m)

	got, err := r.Render("d", kinetex.WithReduce(false))
	require.NoError(t, err)
	assert.Equal(t, "sat &= \\frac{S}{K + S} \\\\\nd &= V \\cdot sat", got)

	got, err = r.Render("d", kinetex.WithReduce(false), kinetex.WithAlign(false))
	require.NoError(t, err)
	assert.Equal(t, "sat = \\frac{S}{K + S} \\\\\nd = V \\cdot sat", got)

	got, err = r.Render("d")
	require.NoError(t, err)
	assert.Equal(t, `d &= V \cdot \frac{S}{K + S}`, got)

	got, err = r.Render("v1", kinetex.WithReduce(false))
	require.NoError(t, err)
	assert.Equal(t, `v1 &= k1 \cdot S`, got, "rules without bindings render on one line")
}

// ============================================================
// ODE assembly
// ============================================================

func TestODE_Chain(t *testing.T) {
	r := kinetex.NewRenderer(newChain(t))

	got, err := r.ODE("S")
	require.NoError(t, err)
	assert.Equal(t, odeLHS("S")+` &= v0 - v1`, got)

	got, err = r.ODE("P")
	require.NoError(t, err)
	assert.Equal(t, odeLHS("P")+` &= v1`, got)
}

func TestODE_SignsAndCoefficients(t *testing.T) {
	tests := []struct {
		name   string
		coeffs []float64
		want   string
	}{
		{"mixed", []float64{1, -1, 2}, `v1 - v2 + 2 v3`},
		{"leading minus", []float64{-1, 1, 0}, `-v1 + v2`},
		{"leading factor", []float64{-2, 0, 0.5}, `-2 v1 + 0.5 v3`},
		{"zero skipped", []float64{0, 0, -3}, `-3 v3`},
		{"no contributions", []float64{0, 0, 0}, `0`},
		{"fraction", []float64{0.25, 0, 0}, `0.25 v1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := kinetex.NewModel()
			require.NoError(t, m.AddParameter("k", 1))
			require.NoError(t, m.AddVariable("X", 0))
			for i, c := range tt.coeffs {
				name := []string{"v1", "v2", "v3"}[i]
				require.NoError(t, m.AddReaction(name, constantRate, []string{"k"},
					map[string]kinetex.Coefficient{"X": kinetex.Coef(c)}))
			}
			got, err := kinetex.NewRenderer(m).ODE("X")
			require.NoError(t, err)
			assert.Equal(t, odeLHS("X")+" &= "+tt.want, got)
		})
	}
}

func TestODE_UntouchedVariable(t *testing.T) {
	m := newChain(t)
	require.NoError(t, m.AddVariable("Q", 0))

	got, err := kinetex.NewRenderer(m).ODE("Q", kinetex.WithAlign(false))
	require.NoError(t, err)
	assert.Equal(t, odeLHS("Q")+` = 0`, got)
}

func TestODE_SymbolicCoefficients(t *testing.T) {
	m := newChain(t)
	require.NoError(t, m.AddParameter("n", 2))
	require.NoError(t, m.AddParameter("m", 3))
	sum := kinetex.MustParseRule([]string{"a", "b"}, "a + b")
	require.NoError(t, m.AddReaction("v2", constantRate, []string{"k1"}, map[string]kinetex.Coefficient{
		"P": kinetex.CoefSymbol("n"),
	}))
	require.NoError(t, m.AddReaction("v3", constantRate, []string{"k1"}, map[string]kinetex.Coefficient{
		"P": kinetex.CoefRule(sum, "n", "m"),
	}))
	require.NoError(t, m.Symbols().Insert("n", `n_{P}`))

	got, err := kinetex.NewRenderer(m).ODE("P")
	require.NoError(t, err)
	assert.Equal(t, odeLHS("P")+` &= v1 + n_{P} \cdot v2 + \left( n_{P} + m \right) \cdot v3`, got)
}

func TestODE_CoefficientRulesAlwaysInline(t *testing.T) {
	m := newChain(t)
	require.NoError(t, m.AddParameter("n", 2))
	half := kinetex.MustParseRule([]string{"x"}, `
h = x * 2
r = h + 1
`)
	require.NoError(t, m.AddReaction("v2", constantRate, []string{"k1"}, map[string]kinetex.Coefficient{
		"P": kinetex.CoefRule(half, "n"),
	}))

	want := odeLHS("P") + ` &= v1 + \left( n \cdot 2 + 1 \right) \cdot v2`
	for _, reduce := range []bool{true, false} {
		got, err := kinetex.NewRenderer(m).ODE("P", kinetex.WithReduce(reduce))
		require.NoError(t, err)
		assert.Equal(t, want, got, "reduce=%v", reduce)
		assert.NotContains(t, got, `\\`)
	}
}

func TestODE_UsesResolvedSymbols(t *testing.T) {
	m := newChain(t)
	require.NoError(t, m.SetMath("v1", `v_{1}`))
	require.NoError(t, m.Symbols().Insert("S", `[S]`))

	got, err := kinetex.NewRenderer(m).ODE("S", kinetex.WithOverrides(map[string]string{"v0": `v_{\mathrm{in}}`}))
	require.NoError(t, err)
	assert.Equal(t, odeLHS("[S]")+` &= v_{\mathrm{in}} - v_{1}`, got)
}

func TestODE_NotAVariable(t *testing.T) {
	r := kinetex.NewRenderer(newChain(t))

	_, err := r.ODE("k1")
	assert.ErrorIs(t, err, kinetex.ErrWrongKind)
	assert.ErrorIs(t, err, kinetex.ErrNameNotFound)

	_, err = r.ODE("nope")
	assert.ErrorIs(t, err, kinetex.ErrNameNotFound)
	assert.NotErrorIs(t, err, kinetex.ErrWrongKind)
}
