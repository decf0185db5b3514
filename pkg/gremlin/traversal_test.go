package gremlin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraversalBytecode(t *testing.T) {
	tr := G().V("v1").Fold().Coalesce(Anon().Unfold(), Anon().AddV("person").Property(TID, "v1"))

	bc := tr.Bytecode()
	require.Len(t, bc.Steps, 3)
	assert.Equal(t, "V", bc.Steps[0].Operator)
	assert.Equal(t, []any{"v1"}, bc.Steps[0].Args)
	assert.Equal(t, "fold", bc.Steps[1].Operator)
	assert.Equal(t, "coalesce", bc.Steps[2].Operator)
	require.Len(t, bc.Steps[2].Args, 2)
	assert.Equal(t, 3, tr.Len())
}

func TestTraversalClone(t *testing.T) {
	base := G().V().HasLabel("person")
	clone := base.Clone().Count()

	assert.Equal(t, 2, base.Len())
	assert.Equal(t, 3, clone.Len())
	assert.False(t, base.endsWithNone())
	assert.True(t, base.Clone().None().endsWithNone())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		tr   *Traversal
		want string
	}{
		{
			name: "simple",
			tr:   G().V().HasLabel("person").Count(),
			want: "g.V().hasLabel('person').count()",
		},
		{
			name: "upsert vertex",
			tr: G().V("a").Fold().Coalesce(
				Anon().Unfold(),
				Anon().AddV("person").Property(TID, "a"),
			).Property(Single, "age", int64(29)),
			want: "g.V('a').fold().coalesce(__.unfold(),__.addV('person').property(T.id,'a')).property(single,'age',29L)",
		},
		{
			name: "predicates",
			tr:   G().V().Has("age", Gt(30)).Has("name", Within("a", "b")).Has("name", StartingWith("m")),
			want: "g.V().has('age',P.gt(30)).has('name',within('a','b')).has('name',TextP.startingWith('m'))",
		},
		{
			name: "range and tokens",
			tr:   G().V().Range(0, 10).ValueMapWithTokens(),
			want: "g.V().range(0L,10L).valueMap(true)",
		},
		{
			name: "floats",
			tr:   G().Inject(1.5, float32(2), math.Inf(1)),
			want: "g.inject(1.5d,2f,Double.POSITIVE_INFINITY)",
		},
		{
			name: "narrow integers",
			tr:   G().Inject(int8(3), int16(-40), int32(5)),
			want: "g.inject((byte)3,(short)-40,5)",
		},
		{
			name: "escaping",
			tr:   G().V().Has("name", "it's\na test"),
			want: `g.V().has('name','it\'s\na test')`,
		},
		{
			name: "side effect source",
			tr:   G().WithSideEffect("x", "y").V(),
			want: "g.withSideEffect('x','y').V()",
		},
		{
			name: "direction and order",
			tr:   G().E().Order().By("w", Desc).Project("d").By(Anon().OutV().ID()),
			want: "g.E().order().by('w',Order.desc).project('d').by(__.outV().id())",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tr.String())
		})
	}
}

func TestEncodeTraversal(t *testing.T) {
	tr := G().WithSideEffect("k", "v").V().HasLabel("person").Limit(5)

	got := encodeToMap(t, tr)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "g:Bytecode", m["@type"])

	value, ok := m["@value"].(map[string]any)
	require.True(t, ok)

	steps, ok := value["step"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 3)
	assert.Equal(t, []any{"V"}, steps[0])
	assert.Equal(t, []any{"hasLabel", "person"}, steps[1])
	assert.Equal(t, []any{"limit", map[string]any{"@type": "g:Int64", "@value": float64(5)}}, steps[2])

	sources, ok := value["source"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{[]any{"withSideEffect", "k", "v"}}, sources)
}

func TestEncodeNestedTraversal(t *testing.T) {
	tr := G().V().Coalesce(Anon().Unfold(), Anon().AddV("x"))

	got := encodeToMap(t, tr)
	value := got.(map[string]any)["@value"].(map[string]any)
	steps := value["step"].([]any)
	coalesce := steps[1].([]any)
	require.Len(t, coalesce, 3)

	nested, ok := coalesce[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "g:Bytecode", nested["@type"])
	_, hasSource := nested["@value"].(map[string]any)["source"]
	assert.False(t, hasSource)
}
