package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotboard/lotboard/internal/auction"
	"github.com/lotboard/lotboard/internal/store"
)

// seedDatabase writes one closed round and one active round to a fresh
// database and returns its path.
func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	state := auction.NewState()
	increments := []int64{1, 5, 10, 50, 100}

	_, _, err = state.StartRound("Player A", "", 10, auction.Participant{ID: "u1", Name: "Alice"}, now)
	require.NoError(t, err)
	_, _, err = state.PlaceBid(5, 1, auction.Participant{ID: "u2", Name: "Bob"}, increments, now.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, state.CloseIfIdle(now.Add(time.Minute), 30*time.Second))

	_, _, err = state.StartRound("Player B", "", 20, auction.Participant{ID: "u1", Name: "Alice"}, now.Add(2*time.Minute))
	require.NoError(t, err)
	state.Touch("u1", "Alice", now.Add(2*time.Minute), 0)

	require.NoError(t, st.Save(context.Background(), state))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStateCommand_Text(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "state", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "next seq:      4")
	assert.Contains(t, out, "closed rounds: 1")
	assert.Contains(t, out, `current round: 2 "Player B" amount=20 leader=Alice`)
}

func TestStateCommand_JSON(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "state", "--db", path, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), data["next_seq"])
	assert.Equal(t, float64(1), data["closed_rounds"])
}

func TestStateCommand_MissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "state")
	require.Error(t, err)
}

func TestStateCommand_OpenFailureText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "test.db")

	out, err := execute(t, "state", "--db", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [OPEN_FAILED]: failed to open database")
}

func TestHistoryCommand_OpenFailureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "test.db")

	out, err := execute(t, "history", "--db", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeOpenFailed, resp.Error.Code)
}

func TestHistoryCommand_Text(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "history", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, `round 1: "Player A" -> Bob for 15`)
	assert.NotContains(t, out, "seq=", "bid log should be hidden without --bids")
}

func TestHistoryCommand_WithBids(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "history", "--db", path, "--bids")
	require.NoError(t, err)
	assert.Contains(t, out, "seq=1 Alice +0 -> 10")
	assert.Contains(t, out, "seq=2 Bob +5 -> 15")
}

func TestHistoryCommand_EmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "history", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no closed rounds")
}
