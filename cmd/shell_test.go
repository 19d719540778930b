package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteLine(t *testing.T) {
	t.Run("QuotedArgumentsStayWhole", func(t *testing.T) {
		runner := &fakeRunner{}
		stubAssemble(t, runner)
		t.Setenv("SCALPEL_EVIDENCE_DIR", t.TempDir())
		t.Setenv("GEMINI_API_KEY", "from-env")

		var out bytes.Buffer
		err := ExecuteLine(context.Background(), `run --url https://example.com --instructions "find my ip address" --device 'mobile'`, &out)
		require.NoError(t, err)

		reqs := runner.requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "find my ip address", reqs[0].Instructions)
		assert.Equal(t, "https://example.com", reqs[0].TargetURL)
		assert.Contains(t, out.String(), `"instructions": "find my ip address"`)
	})

	t.Run("UnbalancedQuoteIsAParseError", func(t *testing.T) {
		runner := &fakeRunner{}
		stubAssemble(t, runner)

		var out bytes.Buffer
		err := ExecuteLine(context.Background(), `run --url https://example.com --instructions "find my ip`, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse command line")
		assert.Empty(t, runner.requests())
	})

	t.Run("BlankLineDoesNothing", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, ExecuteLine(context.Background(), "   ", &out))
		assert.Empty(t, out.String())
	})

	t.Run("FlagsDoNotLeakBetweenLines", func(t *testing.T) {
		t.Chdir(t.TempDir())
		var out bytes.Buffer
		require.NoError(t, ExecuteLine(context.Background(), "--version", &out))
		out.Reset()
		require.NoError(t, ExecuteLine(context.Background(), "version", &out))
		assert.Equal(t, "scalpel-qa version "+Version+"\n", out.String())
	})
}
