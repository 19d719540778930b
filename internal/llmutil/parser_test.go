package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePlan struct {
	Interpretation string   `json:"interpretation"`
	Steps          []string `json:"steps"`
}

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     samplePlan
	}{
		{
			name:     "bare object",
			response: `{"interpretation":"search","steps":["a"]}`,
			want:     samplePlan{Interpretation: "search", Steps: []string{"a"}},
		},
		{
			name:     "markdown fence with language tag",
			response: "```json\n{\"interpretation\":\"fenced\",\"steps\":[]}\n```",
			want:     samplePlan{Interpretation: "fenced", Steps: []string{}},
		},
		{
			name:     "conversational wrapper",
			response: "Sure! Here is the plan: {\"interpretation\":\"chatty\",\"steps\":[\"x\",\"y\"]} Hope it helps.",
			want:     samplePlan{Interpretation: "chatty", Steps: []string{"x", "y"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONResponse[samplePlan](tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseJSONResponse_Array(t *testing.T) {
	got, err := ParseJSONResponse[[]int]("```\n[1, 2, 3]\n```")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, *got)
}

func TestParseJSONResponse_Invalid(t *testing.T) {
	_, err := ParseJSONResponse[samplePlan]("I could not produce a plan.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal LLM JSON response")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello", 3))
	assert.Equal(t, "", Truncate("hello", 0))
	assert.Equal(t, "héé...", Truncate("hééllo", 3), "must cut on rune boundaries")
}

func TestHead(t *testing.T) {
	assert.Equal(t, "abc", Head("abcdef", 3))
	assert.Equal(t, "ab", Head("ab", 3))
	assert.Equal(t, "日本", Head("日本語", 2))
	assert.Equal(t, "", Head("abc", 0))
}
