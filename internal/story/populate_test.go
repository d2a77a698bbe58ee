package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopulate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		answers  Answers
		want     string
	}{
		{
			name:     "all keys present",
			template: "{a} and {b}",
			answers:  Answers{"a": "x", "b": "y"},
			want:     "x and y",
		},
		{
			name:     "unmatched placeholder kept verbatim",
			template: "Hello {name}, meet {friend}",
			answers:  Answers{"name": "Ann"},
			want:     "Hello Ann, meet {friend}",
		},
		{
			name:     "every occurrence replaced",
			template: "{animal}! {animal}? {animal}.",
			answers:  Answers{"animal": "llama"},
			want:     "llama! llama? llama.",
		},
		{
			name:     "no placeholders",
			template: "A plain sentence with {braces missing",
			answers:  Answers{"x": "y"},
			want:     "A plain sentence with {braces missing",
		},
		{
			name:     "answer containing placeholder syntax is not re-substituted",
			template: "{a} then {b}",
			answers:  Answers{"a": "{b}", "b": "B"},
			want:     "{b} then B",
		},
		{
			name:     "keys are literal, not patterns",
			template: "{a.b} vs {axb}",
			answers:  Answers{"a.b": "dot"},
			want:     "dot vs {axb}",
		},
		{
			name:     "empty answer replaces with empty string",
			template: "[{x}]",
			answers:  Answers{"x": ""},
			want:     "[]",
		},
		{
			name:     "nil answers",
			template: "{x}",
			answers:  nil,
			want:     "{x}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Populate(tt.template, tt.answers))
		})
	}
}

func TestPopulate_OrderIndependent(t *testing.T) {
	template := "The {adjective} {animal} ate {food} in {place} with {friend}. {animal}!"
	pairs := [][2]string{
		{"adjective", "sparkly"},
		{"animal", "otter"},
		{"food", "nachos"},
		{"place", "Paris"},
		{"friend", "{animal}"},
	}

	build := func(order []int) Answers {
		a := Answers{}
		for _, i := range order {
			a[pairs[i][0]] = pairs[i][1]
		}
		return a
	}

	want := Populate(template, build([]int{0, 1, 2, 3, 4}))
	assert.Equal(t, "The sparkly otter ate nachos in Paris with {animal}. otter!", want)

	orders := [][]int{{4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}, {1, 4, 0, 3, 2}}
	for _, order := range orders {
		assert.Equal(t, want, Populate(template, build(order)))
	}
	// map iteration order is randomised per range; repeat to exercise it
	answers := build([]int{0, 1, 2, 3, 4})
	for i := 0; i < 50; i++ {
		assert.Equal(t, want, Populate(template, answers))
	}
}

func TestPopulate_IdentityWithoutPlaceholders(t *testing.T) {
	for _, s := range []string{"", "hello", "{ spaced }", "}{", "emoji 🦄 text"} {
		assert.Equal(t, s, Populate(s, Answers{"spaced": "x", "hello": "y"}))
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{b} {a} {b} { not } {c_1} {}")
	assert.Equal(t, []string{"b", "a", "c_1"}, got)
	assert.Empty(t, Placeholders("nothing here"))
}

func TestUnmatchedPlaceholders(t *testing.T) {
	got := UnmatchedPlaceholders("Hello {name}, meet {friend} at {place}", Answers{"name": "Ann"})
	assert.Equal(t, []string{"friend", "place"}, got)
	assert.Nil(t, UnmatchedPlaceholders("{a}", Answers{"a": "x"}))
}
