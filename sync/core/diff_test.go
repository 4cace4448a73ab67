package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meta(path string, size uint64, digest string) FileMeta {
	return FileMeta{RelPath: path, Size: size, Kind: EntryKindRegular, Hash: Digest(digest)}
}

func dir(path string) FileMeta {
	return FileMeta{RelPath: path, Kind: EntryKindDirectory, Mode: 0o755}
}

func inv(entries ...FileMeta) Inventory {
	return sortInventory("/root", append([]FileMeta{}, entries...))
}

func actionsByType(p Plan, t ActionType) []PlanAction {
	var result []PlanAction
	for _, a := range p.Actions {
		if a.Type == t {
			result = append(result, a)
		}
	}
	return result
}

// Scenario: identical trees produce an empty plan.
func TestPlanSync_IdenticalTrees(t *testing.T) {
	source := inv(meta("a.txt", 3, "h1"), dir("sub"), meta("sub/b.txt", 4, "h2"))
	destination := inv(meta("a.txt", 3, "h1"), dir("sub"), meta("sub/b.txt", 4, "h2"))

	plan := PlanSync(source, destination, Options{})

	assert.Empty(t, plan.Actions)
}

// Scenario: a brand-new file with content absent from destination is a
// plain Copy.
func TestPlanSync_NewFileIsCopy(t *testing.T) {
	source := inv(meta("a.txt", 3, "h1"), meta("new.txt", 5, "h2"))
	destination := inv(meta("a.txt", 3, "h1"))

	plan := PlanSync(source, destination, Options{})

	copies := actionsByType(plan, ActionCopy)
	require.Len(t, copies, 1)
	assert.Equal(t, "new.txt", copies[0].SrcRel)
	assert.EqualValues(t, 1, plan.Summary.Copies)
}

// Scenario: changed content at an existing path is an Overwrite, not a
// delete+copy.
func TestPlanSync_ChangedContentIsOverwrite(t *testing.T) {
	source := inv(meta("a.txt", 10, "h-new"))
	destination := inv(meta("a.txt", 5, "h-old"))

	plan := PlanSync(source, destination, Options{})

	overwrites := actionsByType(plan, ActionOverwrite)
	require.Len(t, overwrites, 1)
	assert.Equal(t, "a.txt", overwrites[0].DstRel)
}

// Scenario: a file moved to a new path in source, with its old path gone,
// is detected as a pure rename (no bytes transferred).
func TestPlanSync_RenameDetection(t *testing.T) {
	source := inv(meta("new-name.txt", 100, "content-hash"))
	destination := inv(meta("old-name.txt", 100, "content-hash"))

	plan := PlanSync(source, destination, Options{})

	renames := actionsByType(plan, ActionLocalRename)
	require.Len(t, renames, 1)
	assert.Equal(t, "old-name.txt", renames[0].FromRel)
	assert.Equal(t, "new-name.txt", renames[0].ToRel)
	assert.Empty(t, actionsByType(plan, ActionCopy))
	assert.EqualValues(t, 100, plan.Summary.BytesSaved)
}

// Scenario: content needed at two destination paths, where the original
// path must still hold it afterward (not only_D), is a LocalCopy rather
// than a LocalRename.
func TestPlanSync_LocalCopyWhenSourceStillNeeded(t *testing.T) {
	source := inv(meta("kept.txt", 50, "shared"), meta("duplicate.txt", 50, "shared"))
	destination := inv(meta("kept.txt", 50, "shared"))

	plan := PlanSync(source, destination, Options{})

	localCopies := actionsByType(plan, ActionLocalCopy)
	require.Len(t, localCopies, 1)
	assert.Equal(t, "kept.txt", localCopies[0].FromRel)
	assert.Equal(t, "duplicate.txt", localCopies[0].ToRel)
	assert.Empty(t, actionsByType(plan, ActionLocalRename))
}

// Scenario: with Delete unset, destination-only content is left alone.
func TestPlanSync_DeleteDisabledByDefault(t *testing.T) {
	source := inv(meta("a.txt", 1, "h1"))
	destination := inv(meta("a.txt", 1, "h1"), meta("extra.txt", 2, "h2"))

	plan := PlanSync(source, destination, Options{})

	assert.Empty(t, plan.Actions)
}

// Scenario: with Delete set, destination-only content is removed, and
// directory deletes are ordered after their children.
func TestPlanSync_DeleteEnabledOrdersChildrenFirst(t *testing.T) {
	source := inv()
	destination := inv(dir("stale"), meta("stale/file.txt", 1, "h1"))

	plan := PlanSync(source, destination, Options{Delete: true})

	deletes := actionsByType(plan, ActionDelete)
	require.Len(t, deletes, 2)
	assert.Equal(t, "stale/file.txt", deletes[0].Rel)
	assert.Equal(t, "stale", deletes[1].Rel)
}

// Scenario: zero-byte files share a well-defined digest and are treated as
// identical content for rename-detection purposes.
func TestPlanSync_EmptyFilesShareIdentity(t *testing.T) {
	empty := NewHasher(HashAlgorithmBLAKE2b256).EmptyDigest()
	source := inv(FileMeta{RelPath: "new-empty.txt", Kind: EntryKindRegular, Hash: empty})
	destination := inv(FileMeta{RelPath: "old-empty.txt", Kind: EntryKindRegular, Hash: empty})

	plan := PlanSync(source, destination, Options{})

	renames := actionsByType(plan, ActionLocalRename)
	require.Len(t, renames, 1)
	assert.Equal(t, "old-empty.txt", renames[0].FromRel)
}

// Scenario: determinism — running the planner twice on the same inputs
// produces byte-for-byte identical plans.
func TestPlanSync_Deterministic(t *testing.T) {
	source := inv(meta("a.txt", 1, "h1"), meta("b.txt", 2, "h2"), meta("c.txt", 3, "h3"))
	destination := inv(meta("z.txt", 1, "h1"), meta("y.txt", 2, "h2"))

	first := PlanSync(source, destination, Options{Delete: true})
	second := PlanSync(source, destination, Options{Delete: true})

	assert.Equal(t, first, second)
}

// Scenario: preserve flags emit metadata-only fixups for otherwise
// identical content, and do nothing when unset.
func TestPlanSync_PreserveFlags(t *testing.T) {
	source := FileMeta{RelPath: "a.txt", Kind: EntryKindRegular, Hash: Digest("h1"), Mode: 0o644, ModTime: 200}
	destination := FileMeta{RelPath: "a.txt", Kind: EntryKindRegular, Hash: Digest("h1"), Mode: 0o600, ModTime: 100}

	withoutPreserve := PlanSync(inv(source), inv(destination), Options{})
	assert.Empty(t, withoutPreserve.Actions)

	withPreserve := PlanSync(inv(source), inv(destination), Options{PreserveMode: true, PreserveMtime: true})
	modes := actionsByType(withPreserve, ActionUpdateMode)
	mtimes := actionsByType(withPreserve, ActionUpdateMtime)
	require.Len(t, modes, 1)
	require.Len(t, mtimes, 1)
	assert.EqualValues(t, 0o644, modes[0].Mode)
	assert.EqualValues(t, 200, mtimes[0].ModTime)
}

// Scenario: once a rename has materialized content at a new destination
// path, a second entry wanting the same content dedupes against that path
// with a LocalCopy instead of falling through to a fresh transfer.
func TestPlanSync_DedupAfterRenameMaterializesContent(t *testing.T) {
	source := inv(meta("x.txt", 20, "shared"), meta("y.txt", 20, "shared"))
	destination := inv(meta("z.txt", 20, "shared"))

	plan := PlanSync(source, destination, Options{})

	renames := actionsByType(plan, ActionLocalRename)
	require.Len(t, renames, 1)
	assert.Equal(t, "z.txt", renames[0].FromRel)
	assert.Equal(t, "x.txt", renames[0].ToRel)

	localCopies := actionsByType(plan, ActionLocalCopy)
	require.Len(t, localCopies, 1)
	assert.Equal(t, "x.txt", localCopies[0].FromRel)
	assert.Equal(t, "y.txt", localCopies[0].ToRel)

	assert.Empty(t, actionsByType(plan, ActionCopy))
	assert.Empty(t, actionsByType(plan, ActionOverwrite))
}

// Scenario: two paths swap content. Both sides' new content is available
// from the other path in the destination, so the planner detects a rename
// cycle instead of transferring bytes for either file. The cycle is broken
// by staging one side through a temporary path (resolveRenameChains), so
// the swap surfaces as three renames rather than two.
func TestPlanSync_SwapDetectedAsRenameCycle(t *testing.T) {
	source := inv(meta("a.txt", 8, "X"), meta("b.txt", 8, "Y"))
	destination := inv(meta("a.txt", 8, "Y"), meta("b.txt", 8, "X"))

	plan := PlanSync(source, destination, Options{})

	assert.Empty(t, actionsByType(plan, ActionOverwrite))
	assert.Empty(t, actionsByType(plan, ActionCopy))

	renames := actionsByType(plan, ActionLocalRename)
	require.Len(t, renames, 3)

	byFrom := make(map[string]PlanAction, len(renames))
	for _, r := range renames {
		byFrom[r.FromRel] = r
	}

	direct, ok := byFrom["b.txt"]
	require.True(t, ok, "expected a direct rename reading b.txt's original content")
	assert.Equal(t, "a.txt", direct.ToRel)

	staged, ok := byFrom["a.txt"]
	require.True(t, ok, "expected a's original content staged through a temporary path")
	require.Contains(t, staged.ToRel, ".janus-tmp-cycle-")

	restore, ok := byFrom[staged.ToRel]
	require.True(t, ok, "expected the staged path to be renamed into its final destination")
	assert.Equal(t, "b.txt", restore.ToRel)
}
