package cfg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		lit  string
		want any
	}{
		{lit: "200", want: 200},
		{lit: "0.001", want: 0.001},
		{lit: "True", want: true},
		{lit: "False", want: false},
		{lit: "DGCNN", want: "DGCNN"},
		{lit: "'train'", want: "train"},
		{lit: "(20, 40, 60)", want: []any{20, 40, 60}},
		{lit: "(20,40,60)", want: []any{20, 40, 60}},
		{lit: "('cross_0',)", want: []any{"cross_0"}},
		{lit: "()", want: []any{}},
		{lit: "[1, 2]", want: []any{1, 2}},
		{lit: "((0.1, 0.2), (0.4, 0.8))", want: []any{[]any{0.1, 0.2}, []any{0.4, 0.8}}},
		// Unparsable input falls back to the raw string.
		{lit: "(unclosed", want: "(unclosed"},
		{lit: "a b", want: "a b"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.lit, func(t *testing.T) {
			t.Parallel()
			got := ParseLiteral(tc.lit)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseLiteral(%q) mismatch (-want +got):\n%s", tc.lit, diff)
			}
		})
	}
}

func TestRenderValue(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		value any
		want  string
	}{
		{name: "int", value: 200, want: "200"},
		{name: "float", value: 0.001, want: "0.001"},
		{name: "bool true", value: true, want: "True"},
		{name: "bool false", value: false, want: "False"},
		{name: "string", value: "DGCNN", want: "DGCNN"},
		{name: "int tuple", value: []any{20, 40}, want: "(20, 40)"},
		{name: "single element keeps trailing comma", value: []any{"cross_0"}, want: "('cross_0',)"},
		{name: "nested tuple", value: []any{[]any{0.1, 0.2}}, want: "((0.1, 0.2),)"},
		{name: "string slice", value: []string{"train", "val"}, want: "('train', 'val')"},
		{name: "empty", value: []any{}, want: "()"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, RenderValue(tc.value))
		})
	}
}

func TestLiteral_RoundTrip(t *testing.T) {
	t.Parallel()

	values := []any{
		200,
		0.5,
		true,
		[]any{20, 40, 60},
		[]any{"cross_0"},
		[]any{[]any{16, 32, 128}, []any{32, 64, 128}},
	}
	for _, v := range values {
		require.Equal(t, v, ParseLiteral(RenderValue(v)))
	}
}
