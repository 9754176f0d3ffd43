package exprcond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndRun(t *testing.T) {
	tests := []struct {
		name   string
		source string
		bb     map[string]any
		extra  map[string]any
		want   bool
	}{
		{"comparison", "battery > 20", map[string]any{"battery": 25}, nil, true},
		{"comparison false", "battery > 20", map[string]any{"battery": 15}, nil, false},
		{"boolean ops", `armed && battery >= 10`, map[string]any{"armed": true, "battery": 10}, nil, true},
		{"blackboard map access", `blackboard["battery"] < 50`, map[string]any{"battery": 25}, nil, true},
		{"unset key is falsy", `missing == 1`, map[string]any{}, nil, false},
		{"extra binding", `status == "SUCCESS"`, map[string]any{}, map[string]any{"status": "SUCCESS"}, true},
		{"extra shadows blackboard", `status == "SUCCESS"`, map[string]any{"status": "FAILURE"}, map[string]any{"status": "SUCCESS"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.source)
			require.NoError(t, err)

			got, err := Run(p, Env(tt.bb, tt.extra))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_NonBoolean(t *testing.T) {
	_, err := Compile(`1 + 2`)
	assert.Error(t, err)
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile(`battery >`)
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	c := NewCache()

	p1, err := c.Get("x > 1")
	require.NoError(t, err)
	p2, err := c.Get("x > 1")
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	_, err = c.Get("not valid (((")
	assert.Error(t, err)
}
