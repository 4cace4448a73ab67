package core

import "fmt"

// resolveRenameChains orders a set of LocalRename actions so that no rename
// writes to a path before that path's prior content has been read by
// whichever other rename still needs it, and breaks any rename cycle by
// staging one member of the cycle through a temporary path.
//
// Renames form a graph over integer node indices into a flat array rather
// than recursive path objects: an edge from rename i to rename
// j (deps[i] == j) means "j must execute before i, because j reads from the
// very path i is about to overwrite." Since every ToRel and every FromRel
// among a Planner's emitted renames is unique, each node has at most one
// outgoing dependency and at most one dependent — the graph is a disjoint
// union of simple chains and simple cycles, never a more general DAG.
func resolveRenameChains(renames []PlanAction) []PlanAction {
	n := len(renames)
	if n <= 1 {
		return renames
	}

	fromIndex := make(map[string]int, n)
	for i, r := range renames {
		fromIndex[r.FromRel] = i
	}

	// deps[i] = j means rename j must run before rename i.
	deps := make([]int, n)
	dependedOnBy := make([]int, n)
	for i := range deps {
		deps[i] = -1
		dependedOnBy[i] = -1
	}
	for i, r := range renames {
		if j, ok := fromIndex[r.ToRel]; ok && j != i {
			deps[i] = j
			dependedOnBy[j] = i
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, n)
	var order []int
	tmpCounter := 0
	phaseOneOf := make(map[int]string)   // node index -> temp path it was staged to, if split
	phaseTwoAfter := make(map[int][]int) // dependency node index -> waiting split nodes whose 2nd phase must follow it

	for start := 0; start < n; start++ {
		if color[start] != white {
			continue
		}

		path := []int{start}
		color[start] = gray

		for len(path) > 0 {
			cur := path[len(path)-1]
			dep := deps[cur]

			switch {
			case dep == -1 || color[dep] == black:
				color[cur] = black
				order = append(order, cur)
				path = path[:len(path)-1]

			case color[dep] == gray:
				// dep is an ancestor of cur on the current walk: the edge
				// cur -> dep closes a cycle. Break it by staging cur
				// through a temporary path. cur's predecessor (if any) no
				// longer needs to wait on cur, since the staging write
				// vacates cur.FromRel immediately; cur's own dependency on
				// dep is preserved for its second phase.
				tmp := fmt.Sprintf(".janus-tmp-cycle-%d", tmpCounter)
				tmpCounter++
				phaseOneOf[cur] = tmp
				phaseTwoAfter[dep] = append(phaseTwoAfter[dep], cur)
				if pred := dependedOnBy[cur]; pred != -1 {
					deps[pred] = -1
				}
				color[cur] = black
				order = append(order, cur)
				path = path[:len(path)-1]

			default: // white
				color[dep] = gray
				path = append(path, dep)
			}
		}
	}

	// Final assembly: walk order emitting each node's action (phase-one only,
	// for a split node), then immediately after a node's action, emit the
	// phase-two of any split node that was waiting on it.
	result := make([]PlanAction, 0, n+len(phaseOneOf))
	for _, idx := range order {
		r := renames[idx]
		if tmp, split := phaseOneOf[idx]; split {
			result = append(result, PlanAction{Type: ActionLocalRename, FromRel: r.FromRel, ToRel: tmp, Size: r.Size, Hash: r.Hash})
		} else {
			result = append(result, r)
		}
		for _, waiter := range phaseTwoAfter[idx] {
			wr := renames[waiter]
			result = append(result, PlanAction{Type: ActionLocalRename, FromRel: phaseOneOf[waiter], ToRel: wr.ToRel, Size: wr.Size, Hash: wr.Hash})
		}
	}
	return result
}
