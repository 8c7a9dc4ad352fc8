package persona

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/text"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		persona  Persona
		body     string
		expected string
	}{
		{
			name:     "name and style header",
			persona:  Persona{Name: "Uncle Dale", Style: "fan at the bar"},
			body:     "  That trade was robbery.\n\nStill mad.  ",
			expected: "Uncle Dale (fan at the bar):\nThat trade was robbery.\n\nStill mad.",
		},
		{
			name:     "no style",
			persona:  Persona{Name: "The Insider"},
			body:     "Something is brewing.",
			expected: "The Insider:\nSomething is brewing.",
		},
		{
			name:     "social card flattens lines",
			persona:  Persona{Name: "Samuel A. Loud", Handle: "@ArenaVoice"},
			body:     "WHAT A NIGHT!\nGame 7 delivered.",
			expected: "**Samuel A. Loud** — @ArenaVoice\nWHAT A NIGHT! Game 7 delivered.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.persona.Format(tt.body))
		})
	}
}

func TestFormatKeepsBody(t *testing.T) {
	body := "Trade rumors: the Bears want a closer."
	for _, p := range FromConfig([]config.PersonaConfig{{Name: "A", Style: "x"}, {Name: "B"}}) {
		assert.Contains(t, p.Format(body), body)
	}
}

func TestCardTruncation(t *testing.T) {
	p := Persona{Name: "Milo Stattenberg", Handle: "@MiloModels"}
	long := strings.Repeat("word ", 100)

	out := p.Format(long)
	lines := strings.SplitN(out, "\n", 2)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "…"))
	assert.LessOrEqual(t, text.RuneLen(lines[1]), 300)
	assert.False(t, strings.Contains(lines[1], " …"))
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "title and body",
			input:    "Deadline Deals Shake Up the East\nThe Bears moved two prospects for a closer.",
			expected: "**Deadline Deals Shake Up the East**\n\nThe Bears moved two prospects for a closer.",
		},
		{
			name:     "markdown markers stripped",
			input:    "## **Headline: \"Game 7 Madness\"**\n\nFans are still talking.",
			expected: "**Game 7 Madness**\n\nFans are still talking.",
		},
		{
			name:     "title only",
			input:    "  Quiet Day Across the League  ",
			expected: "**Quiet Day Across the League**",
		},
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Headline(tt.input))
		})
	}
}

func TestHeadlineTitleLength(t *testing.T) {
	title := strings.Repeat("Long headline words ", 10)
	out := Headline(title + "\nbody")

	first := strings.SplitN(out, "\n", 2)[0]
	inner := strings.TrimSuffix(strings.TrimPrefix(first, "**"), "**")
	assert.Less(t, text.RuneLen(inner), 110)
	assert.True(t, strings.HasSuffix(inner, "…"))
	assert.True(t, strings.HasSuffix(out, "\n\nbody"))
}

func TestFromConfigDefaultsWeight(t *testing.T) {
	ps := FromConfig([]config.PersonaConfig{{Name: "A"}, {Name: "B", Weight: 2.5, Handle: "@b"}})
	require.Len(t, ps, 2)
	assert.InDelta(t, 1.0, ps[0].Weight, 0)
	assert.InDelta(t, 2.5, ps[1].Weight, 0)
	assert.Equal(t, "@b", ps[1].Handle)
}

func names(n int) []Persona {
	out := make([]Persona, n)
	for i := range out {
		out[i] = Persona{Name: string(rune('A' + i)), Weight: 1}
	}
	return out
}

func TestSelectorUniformWhenWeightsEqual(t *testing.T) {
	s := NewSelector(names(5), PolicyWeighted, 0, rand.New(rand.NewPCG(42, 24)))

	const trials = 50000
	counts := map[string]int{}
	for range trials {
		p, ok := s.Choose()
		require.True(t, ok)
		counts[p.Name]++
	}

	expected := float64(trials) / 5
	for _, p := range names(5) {
		assert.InDelta(t, expected, float64(counts[p.Name]), expected*0.05, "persona %s", p.Name)
	}
}

func TestSelectorUniformPolicyIgnoresWeights(t *testing.T) {
	personas := []Persona{{Name: "heavy", Weight: 100}, {Name: "light", Weight: 1}}
	s := NewSelector(personas, PolicyUniform, 0, rand.New(rand.NewPCG(1, 1)))

	light := 0
	const trials = 20000
	for range trials {
		if p, _ := s.Choose(); p.Name == "light" {
			light++
		}
	}
	assert.InDelta(t, 0.5, float64(light)/trials, 0.03)
}

func TestSelectorAvoidsRecent(t *testing.T) {
	s := NewSelector(names(3), PolicyWeighted, 2, rand.New(rand.NewPCG(8, 8)))

	for range 50 {
		p, ok := s.Choose()
		require.True(t, ok)
		s.MarkUsed(p)

		next, _ := s.Choose()
		assert.NotEqual(t, p.Name, next.Name)
	}
}

func TestSelectorFallsBackWhenAllRecent(t *testing.T) {
	s := NewSelector(names(1), PolicyWeighted, 4, nil)
	p, _ := s.Choose()
	s.MarkUsed(p)

	again, ok := s.Choose()
	require.True(t, ok)
	assert.Equal(t, p.Name, again.Name)
}

func TestSelectorEmpty(t *testing.T) {
	_, ok := NewSelector(nil, PolicyWeighted, 2, nil).Choose()
	assert.False(t, ok)
}
