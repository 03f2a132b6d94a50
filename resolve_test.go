package kinetex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/njchilds90/kinetex"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"v1", "v1"},
		{"ATP", "ATP"},
		{"k_cat", `k_{cat}`},
		{"k_cat_f", `k_{cat\_f}`},
		{"_x", `\_x`},
		{"x_", `x\_`},
		{"50%", `50\%`},
		{"a&b", `a\&b`},
		{"c#{1}", `c\#\{1\}`},
		{"k_$", `k_{\$}`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, kinetex.Escape(tt.in))
		})
	}
}

func TestResolve_Precedence(t *testing.T) {
	table := kinetex.Overrides{"k": "from-table", "s": "table-s"}
	math := kinetex.SourceFunc(func(name string) (string, bool) {
		if name == "k" || name == "v" {
			return "from-math", true
		}
		return "", false
	})
	call := kinetex.Overrides{"k": "from-call"}

	assert.Equal(t, "from-call", kinetex.Resolve("k", call, math, table))
	assert.Equal(t, "from-math", kinetex.Resolve("v", call, math, table))
	assert.Equal(t, "table-s", kinetex.Resolve("s", call, math, table))
	assert.Equal(t, `k_{m}`, kinetex.Resolve("k_m", call, math, table))
}

func TestResolve_SkipsEmptyAndNilSources(t *testing.T) {
	call := kinetex.Overrides{"k": ""}
	table := kinetex.Overrides{"k": `k_{1}`}
	assert.Equal(t, `k_{1}`, kinetex.Resolve("k", nil, call, table))
	assert.Equal(t, "k", kinetex.Resolve("k"))
}
