package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTurns(n int) []Turn {
	out := []Turn{NewSystemTurn("system")}
	for i := 1; i < n; i++ {
		role := RoleUser
		if i%2 == 0 {
			role = RoleAssistant
		}
		out = append(out, NewTurn(role, fmt.Sprintf("turn-%d", i)))
	}
	return out
}

func TestSelectWindowReturnsAllWhenWithinSize(t *testing.T) {
	turns := makeTurns(5)

	got := SelectWindow(turns, 5)

	require.Equal(t, turns, got)
}

func TestSelectWindowKeepsSystemTurnAndMostRecent(t *testing.T) {
	turns := makeTurns(12)

	got := SelectWindow(turns, 4)

	require.Len(t, got, 5)
	require.Equal(t, turns[0], got[0])
	require.Equal(t, turns[8:], got[1:])
}

func TestSelectWindowJustOverSize(t *testing.T) {
	turns := makeTurns(4)

	got := SelectWindow(turns, 3)

	require.Len(t, got, 4)
	require.Equal(t, turns, got)
}

func TestSelectWindowIsPureAndIdempotent(t *testing.T) {
	turns := makeTurns(40)
	orig := make([]Turn, len(turns))
	copy(orig, turns)

	first := SelectWindow(turns, 10)
	second := SelectWindow(turns, 10)

	require.Equal(t, first, second)
	require.Equal(t, orig, turns)

	first[0].Content = "mutated"
	require.Equal(t, "system", turns[0].Content)
}

func TestSelectWindowDefaultSize(t *testing.T) {
	turns := makeTurns(DefaultWindowSize + 10)

	got := SelectWindow(turns, 0)

	require.Len(t, got, DefaultWindowSize+1)
	require.Equal(t, RoleSystem, got[0].Role)
	require.Equal(t, turns[len(turns)-1], got[len(got)-1])
}

func TestSelectWindowEmpty(t *testing.T) {
	require.Empty(t, SelectWindow(nil, 3))
}
