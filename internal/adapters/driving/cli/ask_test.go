package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/core/domain"
)

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := runCommand(t, "ask")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "ask", "What is the capital of France?")

	require.NoError(t, err)
	assert.Equal(t, "What is the capital of France?", ts.retrieval.lastQuery)
	assert.Equal(t, domain.DefaultTopK, ts.retrieval.lastOpts.K)
	assert.Contains(t, out, "Paris.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] atlas.pdf, page 3 (0.91)")
	assert.Contains(t, out, "Paris is the capital")
}

func TestAskCmd_FlagsOverrideSettings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Retrieval.MinScore = 0.2

	_, err := runCommand(t, "ask", "-k", "2", "q")

	require.NoError(t, err)
	assert.Equal(t, 2, ts.retrieval.lastOpts.K)
	assert.InDelta(t, 0.2, ts.retrieval.lastOpts.MinScore, 1e-9)

	_, err = runCommand(t, "ask", "--min-score", "0.5", "q")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTopK, ts.retrieval.lastOpts.K)
	assert.InDelta(t, 0.5, ts.retrieval.lastOpts.MinScore, 1e-9)
}

func TestAskCmd_RejectsNonPositiveTopK(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "ask", "--top-k", "0", "q")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskCmd_NoSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.answer = &domain.Answer{Text: "Nothing relevant was found."}

	out, err := runCommand(t, "ask", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "Nothing relevant was found.")
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "ask", "--json", "q")

	require.NoError(t, err)
	var payload struct {
		Answer  string `json:"answer"`
		Sources []struct {
			Source string `json:"source"`
			Page   int    `json:"page"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "Paris.", payload.Answer)
	require.Len(t, payload.Sources, 1)
	assert.Equal(t, "atlas.pdf", payload.Sources[0].Source)
	assert.Equal(t, 3, payload.Sources[0].Page)
}

func TestAskCmd_InConversation(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	conv, err := ts.conversation.Create(t.Context(), "alice", "")
	require.NoError(t, err)

	out, err := runCommand(t, "--user", "alice", "ask", "--chat", conv.ID, "capital?")

	require.NoError(t, err)
	assert.Contains(t, out, "From the chat.")
	assert.Equal(t, "capital?", ts.conversation.lastQuestion)
	assert.Len(t, ts.conversation.conversations[conv.ID].Messages, 2)
	assert.Empty(t, ts.retrieval.lastQuery)
}

func TestAskCmd_OtherOwnersConversationIsNotFound(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	conv, err := ts.conversation.Create(t.Context(), "alice", "")
	require.NoError(t, err)

	_, err = runCommand(t, "--user", "mallory", "ask", "--chat", conv.ID, "capital?")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAskCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.err = domain.ErrLLMUnavailable

	_, err := runCommand(t, "ask", "q")

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "ask failed")
}
