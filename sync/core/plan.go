package core

// ActionType identifies which variant of PlanAction a given action is. Go
// has no tagged-union type, so PlanAction is a flat struct tagged by Type,
// with only the fields relevant to that Type populated — the sum-type
// discipline is enforced by convention (exhaustive switches on Type) rather
// than by the type system, mirroring the style of mutagen's EntryKind.
type ActionType uint8

const (
	// ActionCopy streams a source file to a new destination path.
	ActionCopy ActionType = iota
	// ActionOverwrite replaces an existing destination file whose content
	// differs from the source.
	ActionOverwrite
	// ActionLocalRename moves an existing destination file to a new path;
	// no data is transferred.
	ActionLocalRename
	// ActionLocalCopy duplicates an existing destination file to a new
	// path, used when a second destination path needs content that is
	// still required at its original path.
	ActionLocalCopy
	// ActionCreateDir creates a destination directory.
	ActionCreateDir
	// ActionCreateSymlink creates a destination symbolic link.
	ActionCreateSymlink
	// ActionDelete removes a destination entry. Emitted only when
	// Options.Delete is true.
	ActionDelete
	// ActionUpdateMode applies a metadata-only permission fix.
	ActionUpdateMode
	// ActionUpdateMtime applies a metadata-only modification-time fix.
	ActionUpdateMtime
)

// String provides a human-readable name for an ActionType.
func (t ActionType) String() string {
	switch t {
	case ActionCopy:
		return "copy"
	case ActionOverwrite:
		return "overwrite"
	case ActionLocalRename:
		return "local-rename"
	case ActionLocalCopy:
		return "local-copy"
	case ActionCreateDir:
		return "create-dir"
	case ActionCreateSymlink:
		return "create-symlink"
	case ActionDelete:
		return "delete"
	case ActionUpdateMode:
		return "update-mode"
	case ActionUpdateMtime:
		return "update-mtime"
	default:
		return "unknown"
	}
}

// PlanAction is one step of a Plan. Field meaning depends on Type:
//
//   - ActionCopy / ActionOverwrite: SrcRel, DstRel, Size, Hash.
//   - ActionLocalRename / ActionLocalCopy: FromRel, ToRel, Size, Hash.
//   - ActionCreateDir: Rel, Mode.
//   - ActionCreateSymlink: Rel, Target.
//   - ActionDelete: Rel, Kind.
//   - ActionUpdateMode: Rel, Mode.
//   - ActionUpdateMtime: Rel, ModTime.
type PlanAction struct {
	Type ActionType

	SrcRel  string
	DstRel  string
	FromRel string
	ToRel   string
	Rel     string

	Size    uint64
	Hash    Digest
	Mode    uint32
	ModTime int64
	Target  string
	Kind    EntryKind
}

// Options configures Planner behavior.
type Options struct {
	// Delete causes only-in-destination entries to be removed so that DEST
	// becomes an exact mirror of SOURCE. The default (false) is additive:
	// extra destination content is left alone.
	Delete bool
	// PreserveMode causes permission-bit differences on otherwise-identical
	// files to be corrected with ActionUpdateMode.
	PreserveMode bool
	// PreserveMtime causes modification-time differences on otherwise-
	// identical files to be corrected with ActionUpdateMtime.
	PreserveMtime bool
}

// PlanSummary aggregates the counters reported via the PlanReady progress
// event.
type PlanSummary struct {
	Copies        uint64
	Renames       uint64
	LocalCopies   uint64
	Overwrites    uint64
	Deletes       uint64
	BytesToCopy   uint64
	BytesSaved    uint64
}

// Plan is an ordered sequence of PlanAction, plus aggregate counters,
// produced by PlanSync. A Plan is never mutated after construction.
type Plan struct {
	Actions []PlanAction
	Summary PlanSummary
}

// summarize computes the PlanSummary for a finished action sequence.
// BytesSaved reflects the content made available via rename/local-copy
// instead of a fresh transfer.
func summarize(actions []PlanAction) PlanSummary {
	var s PlanSummary
	for _, a := range actions {
		switch a.Type {
		case ActionCopy:
			s.Copies++
			s.BytesToCopy += a.Size
		case ActionOverwrite:
			s.Overwrites++
			s.BytesToCopy += a.Size
		case ActionLocalRename:
			s.Renames++
			s.BytesSaved += a.Size
		case ActionLocalCopy:
			s.LocalCopies++
			s.BytesSaved += a.Size
		case ActionDelete:
			s.Deletes++
		}
	}
	return s
}
