package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rename(from, to string) PlanAction {
	return PlanAction{Type: ActionLocalRename, FromRel: from, ToRel: to}
}

func indexOfTarget(actions []PlanAction, from, to string) int {
	for i, a := range actions {
		if a.FromRel == from && a.ToRel == to {
			return i
		}
	}
	return -1
}

// A simple chain (c depends on b depends on a) must come out in dependency
// order: whoever vacates a path runs before whoever writes it.
func TestResolveRenameChains_SimpleChain(t *testing.T) {
	renames := []PlanAction{
		rename("b", "c"), // must run before a->b, since it reads b
		rename("a", "b"),
	}

	ordered := resolveRenameChains(renames)

	require.Len(t, ordered, 2)
	bToC := indexOfTarget(ordered, "b", "c")
	aToB := indexOfTarget(ordered, "a", "b")
	assert.Less(t, bToC, aToB)
}

// A two-element swap (A<->B) is a true cycle and must be broken via a
// staged temporary path: one of the two renames is split into two phases.
func TestResolveRenameChains_TwoElementCycle(t *testing.T) {
	renames := []PlanAction{
		rename("A", "B"),
		rename("B", "A"),
	}

	ordered := resolveRenameChains(renames)

	require.Len(t, ordered, 3) // one rename split into two phases
	// Reconstruct the final source/destination of every path by replaying
	// the ordered renames and check that both original paths still resolve
	// to the right final content identity (A's content ends at B, and vice
	// versa), with no rename overwriting unread content.
	location := map[string]string{"A": "A-content", "B": "B-content"}
	for _, a := range ordered {
		content, ok := location[a.FromRel]
		require.True(t, ok, "rename read from a path with no known content: %s", a.FromRel)
		delete(location, a.FromRel)
		location[a.ToRel] = content
	}
	assert.Equal(t, "B-content", location["A"])
	assert.Equal(t, "A-content", location["B"])
}

// A three-element cycle (A->B->C->A) must also resolve without data loss.
func TestResolveRenameChains_ThreeElementCycle(t *testing.T) {
	renames := []PlanAction{
		rename("A", "B"),
		rename("B", "C"),
		rename("C", "A"),
	}

	ordered := resolveRenameChains(renames)
	require.GreaterOrEqual(t, len(ordered), 3)

	location := map[string]string{"A": "A-content", "B": "B-content", "C": "C-content"}
	for _, a := range ordered {
		content, ok := location[a.FromRel]
		require.True(t, ok, "rename read from a path with no known content: %s", a.FromRel)
		delete(location, a.FromRel)
		location[a.ToRel] = content
	}
	assert.Equal(t, "C-content", location["A"])
	assert.Equal(t, "A-content", location["B"])
	assert.Equal(t, "B-content", location["C"])
}

// A single rename, or an empty set, passes through unchanged.
func TestResolveRenameChains_Trivial(t *testing.T) {
	assert.Empty(t, resolveRenameChains(nil))
	single := []PlanAction{rename("x", "y")}
	assert.Equal(t, single, resolveRenameChains(single))
}
