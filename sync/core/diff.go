package core

import (
	"sort"
)

// contentIndex maps a hash's hex string to the sorted set of destination
// paths holding that content. It is a view over the destination inventory,
// built once per Plan call and mutated as the planner consumes candidates
// out of the destination-only set.
type contentIndex struct {
	byHash map[string][]string
}

// newContentIndex builds an index over every regular-file entry in an
// inventory, including entries also present in the source tree.
func newContentIndex(entries []FileMeta) *contentIndex {
	idx := &contentIndex{byHash: make(map[string][]string)}
	for _, e := range entries {
		if e.Kind != EntryKindRegular || len(e.Hash) == 0 {
			continue
		}
		key := e.Hash.String()
		idx.byHash[key] = append(idx.byHash[key], e.RelPath)
	}
	for _, paths := range idx.byHash {
		sort.Strings(paths)
	}
	return idx
}

// candidates returns the current (sorted) set of destination paths holding
// the given hash.
func (idx *contentIndex) candidates(hash Digest) []string {
	return idx.byHash[hash.String()]
}

// remove drops a single path from the index, e.g. once it has been consumed
// by a LocalRename.
func (idx *contentIndex) remove(hash Digest, path string) {
	key := hash.String()
	paths := idx.byHash[key]
	for i, p := range paths {
		if p == path {
			idx.byHash[key] = append(paths[:i], paths[i+1:]...)
			return
		}
	}
}

// insert adds path to the index under hash, preserving sort order and
// keeping a single copy. Used once a path has been given this content by a
// LocalRename or LocalCopy, both of which run before every LocalCopy that
// could read from it, so a later entry needing the same content can be
// satisfied with a LocalCopy instead of a fresh transfer.
func (idx *contentIndex) insert(hash Digest, path string) {
	key := hash.String()
	paths := idx.byHash[key]
	i := sort.SearchStrings(paths, path)
	if i < len(paths) && paths[i] == path {
		return
	}
	paths = append(paths, "")
	copy(paths[i+1:], paths[i:])
	paths[i] = path
	idx.byHash[key] = paths
}

// partition splits two inventories by relative path (and, since directories
// and symlinks aren't content-addressed, also by kind) into "only source",
// "only destination", and "both" sets.
//
// An entry whose kind differs between source and destination at the same
// path (e.g. a file replaced by a directory) is treated as two separate
// entries — one only-in-source, one only-in-destination. Same-path,
// different-kind transitions are otherwise unspecified, and this is the
// only interpretation that lets the existing-destination object be removed
// (when deletion is enabled) before the new one is created at that path.
type partitioned struct {
	onlyS []FileMeta
	onlyD []FileMeta
	both  []struct{ s, d FileMeta }
}

func partition(src, dst Inventory) partitioned {
	dstByPath := dst.ByPath()
	seen := make(map[string]bool, len(dst.Entries))

	var result partitioned
	for _, s := range src.Entries {
		d, ok := dstByPath[s.RelPath]
		if ok {
			seen[s.RelPath] = true
			if d.Kind == s.Kind {
				result.both = append(result.both, struct{ s, d FileMeta }{s, *d})
				continue
			}
			result.onlyD = append(result.onlyD, *d)
		}
		result.onlyS = append(result.onlyS, s)
	}
	for _, d := range dst.Entries {
		if !seen[d.RelPath] {
			result.onlyD = append(result.onlyD, d)
		}
	}
	return result
}

// PlanSync is the Planner's sole entry point: a pure function over two
// frozen inventories and a set of options that produces an ordered, minimal
// mutation Plan. It never performs I/O and never fails on valid (sorted)
// inventories.
func PlanSync(src, dst Inventory, opts Options) Plan {
	p := partition(src, dst)
	index := newContentIndex(dst.Entries)

	// Destination-only membership, tracked as a mutable set so the final
	// delete pass can tell which only_D entries were consumed by a rename
	// or local-copy above.
	onlyDSet := make(map[string]bool, len(p.onlyD))
	for _, d := range p.onlyD {
		onlyDSet[d.RelPath] = true
	}

	// freeable tracks every destination path whose current content can be
	// claimed by a rename instead of duplicated: only_D paths (which would
	// otherwise just be deleted) and "both" paths whose content is about to
	// be overwritten in place (whose old content is, from the rename
	// detector's perspective, exactly as free as a deleted path's). A path
	// only leaves this set once something is actually chosen to rename it
	// away.
	freeable := make(map[string]bool, len(p.onlyD)+len(p.both))
	for path := range onlyDSet {
		freeable[path] = true
	}

	var createDirs []PlanAction
	var renames []PlanAction
	var localCopies []PlanAction
	var transfers []PlanAction
	var metadata []PlanAction
	var symlinks []PlanAction
	var deletes []PlanAction

	dstDirSet := make(map[string]bool)
	for _, d := range dst.Entries {
		if d.Kind == EntryKindDirectory {
			dstDirSet[d.RelPath] = true
		}
	}

	// need describes one path that requires new regular-file content,
	// whether that path is brand new (only_S, satisfied with ActionCopy if
	// no rename/local-copy candidate exists) or already exists with
	// different content (a mismatched "both" pair, satisfied with
	// ActionOverwrite instead).
	type need struct {
		relPath  string
		size     uint64
		hash     Digest
		fallback ActionType
	}
	var needs []need

	// Entries present at the same path with the same kind.
	for _, pair := range p.both {
		switch pair.s.Kind {
		case EntryKindDirectory:
			metadata = append(metadata, metadataFixups(pair.s, pair.d, opts)...)
		case EntryKindSymlink:
			if pair.s.Target != pair.d.Target {
				symlinks = append(symlinks, PlanAction{Type: ActionCreateSymlink, Rel: pair.s.RelPath, Target: pair.s.Target})
			}
		case EntryKindRegular:
			if pair.s.Hash.Equal(pair.d.Hash) {
				metadata = append(metadata, metadataFixups(pair.s, pair.d, opts)...)
				continue
			}
			// The content currently at this path is about to be replaced,
			// so it's available for some other entry's rename/local-copy
			// just like an only_D path would be.
			freeable[pair.s.RelPath] = true
			needs = append(needs, need{pair.s.RelPath, pair.s.Size, pair.s.Hash, ActionOverwrite})
		}
	}

	// Entries only in source, sorted by relative path for determinism.
	sort.Slice(p.onlyS, func(i, j int) bool { return p.onlyS[i].RelPath < p.onlyS[j].RelPath })
	for _, e := range p.onlyS {
		switch e.Kind {
		case EntryKindDirectory:
			if !dstDirSet[e.RelPath] {
				createDirs = append(createDirs, PlanAction{Type: ActionCreateDir, Rel: e.RelPath, Mode: e.Mode})
				dstDirSet[e.RelPath] = true
			}
		case EntryKindSymlink:
			symlinks = append(symlinks, PlanAction{Type: ActionCreateSymlink, Rel: e.RelPath, Target: e.Target})
		case EntryKindRegular:
			needs = append(needs, need{e.RelPath, e.Size, e.Hash, ActionCopy})
		}
	}

	// Resolve every regular-file need against the content index, in
	// relative-path order so that a path materialized by an earlier need
	// (via rename or local-copy) is available as a LocalCopy source for a
	// later need sharing the same content — and so
	// that a "both"-mismatched path can itself be claimed as a rename
	// source by another need before its own replacement content lands.
	sort.Slice(needs, func(i, j int) bool { return needs[i].relPath < needs[j].relPath })
	for _, n := range needs {
		cands := index.candidates(n.hash)
		if len(cands) == 0 {
			transfers = append(transfers, PlanAction{
				Type: n.fallback, SrcRel: n.relPath, DstRel: n.relPath,
				Size: n.size, Hash: n.hash,
			})
			// Not indexed: transfers run after every LocalCopy, so no
			// LocalCopy could read this path's new content.
			continue
		}

		chosen, isFree := chooseCandidate(cands, freeable)
		if isFree {
			renames = append(renames, PlanAction{
				Type: ActionLocalRename, FromRel: chosen, ToRel: n.relPath,
				Size: n.size, Hash: n.hash,
			})
			delete(freeable, chosen)
			delete(onlyDSet, chosen)
			index.remove(n.hash, chosen)
		} else {
			localCopies = append(localCopies, PlanAction{
				Type: ActionLocalCopy, FromRel: chosen, ToRel: n.relPath,
				Size: n.size, Hash: n.hash,
			})
		}
		index.insert(n.hash, n.relPath)
	}

	// Linearize or break cycles among the emitted LocalRename actions
	// before they're ordered into the plan.
	renames = resolveRenameChains(renames)

	// Entries remaining only in destination.
	if opts.Delete {
		sort.Slice(p.onlyD, func(i, j int) bool { return p.onlyD[i].RelPath > p.onlyD[j].RelPath })
		for _, d := range p.onlyD {
			if !onlyDSet[d.RelPath] {
				continue // consumed by a rename/local-copy above
			}
			deletes = append(deletes, PlanAction{Type: ActionDelete, Rel: d.RelPath, Kind: d.Kind})
		}
		deletes = orderDeletesChildBeforeParent(deletes)
	}

	sort.Slice(createDirs, func(i, j int) bool { return createDirs[i].Rel < createDirs[j].Rel })
	sort.Slice(localCopies, func(i, j int) bool { return localCopies[i].ToRel < localCopies[j].ToRel })
	sort.Slice(transfers, func(i, j int) bool { return transfers[i].DstRel < transfers[j].DstRel })
	sort.Slice(metadata, func(i, j int) bool { return metadataRel(metadata[i]) < metadataRel(metadata[j]) })
	sort.Slice(symlinks, func(i, j int) bool { return symlinks[i].Rel < symlinks[j].Rel })

	actions := make([]PlanAction, 0, len(createDirs)+len(renames)+len(localCopies)+len(transfers)+len(metadata)+len(symlinks)+len(deletes))
	actions = append(actions, createDirs...)
	actions = append(actions, renames...)
	actions = append(actions, localCopies...)
	actions = append(actions, transfers...)
	actions = append(actions, metadata...)
	actions = append(actions, symlinks...)
	actions = append(actions, deletes...)

	return Plan{Actions: actions, Summary: summarize(actions)}
}

// chooseCandidate applies the tie-break rule for content-addressed rename
// detection: prefer a candidate whose content is free to be claimed (an
// only_D path, or a "both" path about to be overwritten with different
// content), since renaming it away doesn't duplicate anything, and among
// those prefer the lexicographically smallest path; otherwise (all
// candidates are still needed as-is) pick the lexicographically smallest
// and signal that a LocalCopy, not a LocalRename, is required.
func chooseCandidate(candidates []string, freeable map[string]bool) (path string, isFree bool) {
	for _, c := range candidates { // candidates is already sorted
		if freeable[c] {
			return c, true
		}
	}
	return candidates[0], false
}

// metadataFixups emits UpdateMode/UpdateMtime actions when the preserve
// flags are set and the source and destination disagree.
func metadataFixups(s, d FileMeta, opts Options) []PlanAction {
	var result []PlanAction
	if opts.PreserveMode && s.Mode != d.Mode {
		result = append(result, PlanAction{Type: ActionUpdateMode, Rel: s.RelPath, Mode: s.Mode})
	}
	if opts.PreserveMtime && s.ModTime != d.ModTime {
		result = append(result, PlanAction{Type: ActionUpdateMtime, Rel: s.RelPath, ModTime: s.ModTime})
	}
	return result
}

// metadataRel extracts the path a metadata-only action targets, for sorting.
func metadataRel(a PlanAction) string { return a.Rel }

// orderDeletesChildBeforeParent sorts Delete actions so that children
// precede their parent directories. Reverse lexicographic order on the
// relative path achieves this because any child path is lexicographically
// greater than its parent (it has the parent as a prefix followed by "/").
func orderDeletesChildBeforeParent(deletes []PlanAction) []PlanAction {
	sort.Slice(deletes, func(i, j int) bool { return deletes[i].Rel > deletes[j].Rel })
	return deletes
}
