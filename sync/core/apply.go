package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/janus-sync/janus/internal/contextutil"
	"github.com/janus-sync/janus/internal/logging"
	"github.com/janus-sync/janus/internal/must"
	"github.com/janus-sync/janus/internal/random"
	"github.com/janus-sync/janus/internal/stream"
)

// tempSuffixBytes sizes the random suffix used for ".janus-tmp-<hex>"
// staging paths: 8 bytes of entropy renders as 16 hex characters.
const tempSuffixBytes = 8

// ApplyOptions configures a single Apply invocation.
type ApplyOptions struct {
	// Threads sizes the bounded worker pool used to run independent Copy and
	// Overwrite transfers concurrently. A value <= 0 selects
	// runtime.NumCPU(). Every other action type is applied sequentially, in
	// Plan order, because renames and deletes carry ordering dependencies
	// that a flat worker pool would violate.
	Threads int
	// Verify re-hashes a transferred file's on-disk bytes against the
	// expected digest before the atomic rename that publishes it, trading
	// throughput for end-to-end integrity checking.
	Verify bool
	// HashAlgorithm is used only when Verify is set.
	HashAlgorithm HashAlgorithm
	// Logger receives diagnostic output. A nil logger selects
	// logging.RootLogger.
	Logger *logging.Logger
	// Sink receives progress events. Defaults to NoopProgressSink.
	Sink ProgressSink
}

func (o ApplyOptions) threadCount() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.NumCPU()
}

// ExecutionResult summarizes the outcome of an Apply call.
type ExecutionResult struct {
	Applied  int
	Problems []Problem
}

// Apply executes every PlanAction in plan against srcRoot/dstRoot, in the
// order the Planner emitted them, streaming file content in chunkSize
// blocks and publishing it atomically via a temporary path followed by a
// rename. Individual action failures are recorded as
// Problems and do not abort the run unless Problem.Fatal reports true, in
// which case Apply stops scheduling further actions and returns the fatal
// error once everything already in flight has settled.
func Apply(ctx context.Context, plan Plan, srcRoot, dstRoot string, options ApplyOptions) (ExecutionResult, error) {
	sink := options.Sink
	if sink == nil {
		sink = NoopProgressSink
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.RootLogger
	}
	logger = logger.Sublogger("executor")

	e := &executor{
		srcRoot: srcRoot,
		dstRoot: dstRoot,
		hasher:  NewHasher(options.HashAlgorithm),
		verify:  options.Verify,
		logger:  logger,
		sink:    sink,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Phase order exactly mirrors Planner emission order: CreateDir,
	// LocalRename, LocalCopy, Copy/Overwrite, metadata fixups,
	// CreateSymlink, Delete. Only the Copy/Overwrite phase is parallelized;
	// the others carry ordering dependencies on each other.
	phases := splitPhases(plan.Actions)

	for _, a := range phases.createDirs {
		e.runSequential(runCtx, a)
	}
	for _, a := range phases.renames {
		e.runSequential(runCtx, a)
	}
	for _, a := range phases.localCopies {
		e.runSequential(runCtx, a)
	}
	e.runTransfersConcurrently(runCtx, phases.transfers, options.threadCount())
	for _, a := range phases.metadata {
		e.runSequential(runCtx, a)
	}
	for _, a := range phases.symlinks {
		e.runSequential(runCtx, a)
	}
	for _, a := range phases.deletes {
		e.runSequential(runCtx, a)
	}

	if e.fatal != nil {
		return ExecutionResult{Applied: e.applied, Problems: e.problems}, e.fatal
	}
	if contextutil.IsCancelled(ctx) {
		return ExecutionResult{Applied: e.applied, Problems: e.problems}, ErrCancelled
	}
	return ExecutionResult{Applied: e.applied, Problems: e.problems}, nil
}

// actionPhases groups a flat action slice back into the phases the Planner
// emitted them in, so the executor can apply each phase's own concurrency
// and ordering rules.
type actionPhases struct {
	createDirs  []PlanAction
	renames     []PlanAction
	localCopies []PlanAction
	transfers   []PlanAction
	metadata    []PlanAction
	symlinks    []PlanAction
	deletes     []PlanAction
}

func splitPhases(actions []PlanAction) actionPhases {
	var p actionPhases
	for _, a := range actions {
		switch a.Type {
		case ActionCreateDir:
			p.createDirs = append(p.createDirs, a)
		case ActionLocalRename:
			p.renames = append(p.renames, a)
		case ActionLocalCopy:
			p.localCopies = append(p.localCopies, a)
		case ActionCopy, ActionOverwrite:
			p.transfers = append(p.transfers, a)
		case ActionUpdateMode, ActionUpdateMtime:
			p.metadata = append(p.metadata, a)
		case ActionCreateSymlink:
			p.symlinks = append(p.symlinks, a)
		case ActionDelete:
			p.deletes = append(p.deletes, a)
		}
	}
	return p
}

// executor holds the mutable state shared across one Apply invocation.
type executor struct {
	srcRoot string
	dstRoot string
	hasher  *Hasher
	verify  bool
	logger  *logging.Logger
	sink    ProgressSink

	mu       sync.Mutex
	applied  int
	problems []Problem
	fatal    error
}

func (e *executor) recordProblem(p Problem) {
	e.mu.Lock()
	if p.Fatal() && e.fatal == nil {
		e.fatal = p
	}
	e.problems = append(e.problems, p)
	e.mu.Unlock()
	e.logger.Warn(p)
}

func (e *executor) recordApplied() {
	e.mu.Lock()
	e.applied++
	e.mu.Unlock()
}

func (e *executor) cancelled(ctx context.Context) bool {
	e.mu.Lock()
	fatal := e.fatal != nil
	e.mu.Unlock()
	return fatal || contextutil.IsCancelled(ctx)
}

// runSequential applies a single action from one of the order-sensitive
// phases and records its outcome.
func (e *executor) runSequential(ctx context.Context, action PlanAction) {
	if e.cancelled(ctx) {
		return
	}
	e.sink.ActionStarted(0, action)
	err := e.apply(ctx, action, nil)
	e.sink.ActionDone(0, action, err)
	if err != nil {
		e.recordProblem(problemFor(action, err))
		return
	}
	e.recordApplied()
}

// runTransfersConcurrently applies Copy and Overwrite actions through a
// bounded worker pool, since each targets a distinct destination path and
// none of them depend on another transfer having completed first.
func (e *executor) runTransfersConcurrently(ctx context.Context, actions []PlanAction, threads int) {
	if len(actions) == 0 {
		return
	}
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	for i, a := range actions {
		if e.cancelled(ctx) {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}
		wg.Add(1)
		go func(index int, action PlanAction) {
			defer wg.Done()
			defer func() { <-sem }()

			e.sink.ActionStarted(index, action)
			progress := func(delta uint64) { e.sink.ActionBytes(index, delta) }
			err := e.apply(ctx, action, progress)
			e.sink.ActionDone(index, action, err)
			if err != nil {
				e.recordProblem(problemFor(action, err))
				return
			}
			e.recordApplied()
		}(i, a)
	}
	wg.Wait()
}

// problemFor classifies an apply-time error into a Problem with the
// appropriate ErrorKind, so Problem.Fatal can decide whether it should stop
// the run.
func problemFor(action PlanAction, err error) Problem {
	path := actionPath(action)
	kind := ErrorKindUnknown
	switch {
	case errors.Is(err, ErrHashMismatch):
		kind = ErrorKindHashMismatch
	case errors.Is(err, os.ErrPermission):
		kind = ErrorKindPermissionDenied
	case errors.Is(err, syscall.ENOSPC):
		kind = ErrorKindDiskFull
	case action.Type == ActionLocalRename, action.Type == ActionLocalCopy, action.Type == ActionCopy, action.Type == ActionOverwrite:
		kind = ErrorKindAtomicRenameFailed
	case action.Type == ActionDelete:
		kind = ErrorKindDeleteFailed
	}
	return Problem{Path: path, Kind: kind, Err: err}
}

// actionPath picks the path that best identifies an action for reporting.
func actionPath(a PlanAction) string {
	switch a.Type {
	case ActionCopy, ActionOverwrite:
		return a.DstRel
	case ActionLocalRename, ActionLocalCopy:
		return a.ToRel
	default:
		return a.Rel
	}
}

// apply dispatches a single action to its handler. progress may be nil for
// sequential (non-transfer) actions.
func (e *executor) apply(ctx context.Context, a PlanAction, progress stream.ProgressFunc) error {
	switch a.Type {
	case ActionCreateDir:
		return e.applyCreateDir(a)
	case ActionLocalRename:
		return e.applyLocalRename(ctx, a)
	case ActionLocalCopy:
		return e.applyLocalCopy(ctx, a, progress)
	case ActionCopy:
		return e.applyCopy(ctx, a, progress)
	case ActionOverwrite:
		return e.applyCopy(ctx, a, progress)
	case ActionUpdateMode:
		must.Chmod(filepath.Join(e.dstRoot, filepath.FromSlash(a.Rel)), os.FileMode(a.Mode), e.logger)
		return nil
	case ActionUpdateMtime:
		must.Chtimes(filepath.Join(e.dstRoot, filepath.FromSlash(a.Rel)), a.ModTime, a.ModTime, e.logger)
		return nil
	case ActionCreateSymlink:
		return e.applyCreateSymlink(a)
	case ActionDelete:
		return e.applyDelete(a)
	default:
		return fmt.Errorf("unknown action type: %v", a.Type)
	}
}

func (e *executor) dstAbs(rel string) string { return filepath.Join(e.dstRoot, filepath.FromSlash(rel)) }
func (e *executor) srcAbs(rel string) string { return filepath.Join(e.srcRoot, filepath.FromSlash(rel)) }

func (e *executor) applyCreateDir(a PlanAction) error {
	path := e.dstAbs(a.Rel)
	// Owner rwx is forced on so the directory is usable immediately; an
	// exact-mode fixup (if requested) runs later in the metadata phase.
	if err := os.Mkdir(path, os.FileMode(a.Mode)|0o700); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return errors.Wrap(err, "unable to create directory")
	}
	return nil
}

// applyLocalRename performs an in-place rename within dstRoot. No data is
// streamed, except when the rename fails with EXDEV (a mount point inside
// the destination tree): the file is then streamed to its new path and the
// original removed.
func (e *executor) applyLocalRename(ctx context.Context, a PlanAction) error {
	from, to := e.dstAbs(a.FromRel), e.dstAbs(a.ToRel)
	if err := os.Rename(from, to); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return errors.Wrap(err, "unable to rename")
		}
		if err := e.streamCopy(ctx, from, to, a.Hash, nil); err != nil {
			return err
		}
		if err := os.Remove(from); err != nil {
			return errors.Wrap(err, "unable to remove original after cross-device copy")
		}
	}
	return nil
}

// applyLocalCopy duplicates an existing destination file to a new
// destination path, streaming through the same atomic temp-file discipline
// as a cross-tree Copy.
func (e *executor) applyLocalCopy(ctx context.Context, a PlanAction, progress stream.ProgressFunc) error {
	return e.streamCopy(ctx, e.dstAbs(a.FromRel), e.dstAbs(a.ToRel), a.Hash, progress)
}

// applyCopy streams a source-tree file to its destination path (fresh copy
// or overwrite of changed content) via a temporary file followed by an
// atomic rename.
func (e *executor) applyCopy(ctx context.Context, a PlanAction, progress stream.ProgressFunc) error {
	return e.streamCopy(ctx, e.srcAbs(a.SrcRel), e.dstAbs(a.DstRel), a.Hash, progress)
}

// streamCopy copies srcAbs to a ".janus-tmp-<hex>" sibling of dstAbs in
// chunkSize blocks, optionally verifies the result's digest, and atomically
// publishes it with os.Rename. The temporary file is removed on any
// failure path (best-effort; see internal/must).
func (e *executor) streamCopy(ctx context.Context, srcAbs, dstAbs string, expected Digest, progress stream.ProgressFunc) error {
	in, err := os.Open(srcAbs)
	if err != nil {
		return errors.Wrap(err, "unable to open source")
	}
	defer must.Close(in, e.logger)

	info, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, "unable to stat source")
	}

	tmpAbs, err := e.tempPathFor(dstAbs)
	if err != nil {
		return err
	}
	// Created private to this user while content is still in flight; its
	// real mode is set just before publishing, below.
	out, err := os.OpenFile(tmpAbs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_EXCL, 0o600)
	if err != nil {
		return errors.Wrap(err, "unable to create temporary file")
	}

	var writer io.Writer = out
	hasher := e.hasher.algorithm.factory()()
	if e.verify {
		writer = stream.NewHashedWriter(writer, hasher)
	}
	if progress != nil {
		writer = stream.NewProgressWriter(writer, progress)
	}

	copyErr := copyChunked(ctx, writer, in)
	closeErr := out.Close()
	if copyErr != nil {
		must.OSRemove(tmpAbs, e.logger)
		if closeErr != nil {
			e.logger.Warnf("unable to close temporary file: %s", closeErr.Error())
		}
		return copyErr
	}
	if closeErr != nil {
		must.OSRemove(tmpAbs, e.logger)
		return errors.Wrap(closeErr, "unable to flush temporary file")
	}

	if e.verify {
		if !Digest(hasher.Sum(nil)).Equal(expected) {
			must.OSRemove(tmpAbs, e.logger)
			return fmt.Errorf("%w: content changed during copy", ErrHashMismatch)
		}
	}

	// The temp file was created 0600 to keep its content private while
	// being written; now that it's complete, give it its real mode before
	// it becomes visible at dstAbs. A PreserveMode fixup, if requested,
	// still runs afterward in the metadata phase.
	if err := os.Chmod(tmpAbs, info.Mode().Perm()); err != nil {
		must.OSRemove(tmpAbs, e.logger)
		return errors.Wrap(err, "unable to set permissions on temporary file")
	}

	if err := os.Rename(tmpAbs, dstAbs); err != nil {
		must.OSRemove(tmpAbs, e.logger)
		return errors.Wrap(err, "unable to publish copy")
	}
	return nil
}

// tempPathFor builds a ".janus-tmp-<16 hex chars>" path alongside dstAbs, in
// the same directory so the final rename is always same-filesystem.
func (e *executor) tempPathFor(dstAbs string) (string, error) {
	suffix, err := random.Hex(tempSuffixBytes)
	if err != nil {
		return "", errors.Wrap(err, "unable to generate temporary file name")
	}
	dir := filepath.Dir(dstAbs)
	return filepath.Join(dir, ".janus-tmp-"+suffix), nil
}

// copyChunked streams src into dst in chunkSize blocks, checking ctx for
// cancellation at each boundary.
func copyChunked(ctx context.Context, dst io.Writer, src io.Reader) error {
	buffer := make([]byte, chunkSize)
	for {
		if contextutil.IsCancelled(ctx) {
			return ErrCancelled
		}
		n, readErr := src.Read(buffer)
		if n > 0 {
			if _, writeErr := dst.Write(buffer[:n]); writeErr != nil {
				return errors.Wrap(writeErr, "unable to write content")
			}
		}
		if readErr == io.EOF {
			return nil
		} else if readErr != nil {
			return errors.Wrap(readErr, "unable to read content")
		}
	}
}

func (e *executor) applyCreateSymlink(a PlanAction) error {
	tmpAbs, err := e.tempPathFor(e.dstAbs(a.Rel))
	if err != nil {
		return err
	}
	if err := os.Symlink(a.Target, tmpAbs); err != nil {
		return errors.Wrap(err, "unable to create symbolic link")
	}
	if err := os.Rename(tmpAbs, e.dstAbs(a.Rel)); err != nil {
		must.OSRemove(tmpAbs, e.logger)
		return errors.Wrap(err, "unable to publish symbolic link")
	}
	return nil
}

func (e *executor) applyDelete(a PlanAction) error {
	// Directory children were deleted first by delete-phase ordering, so a
	// plain Remove suffices for every entry kind.
	if err := os.Remove(e.dstAbs(a.Rel)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to delete")
	}
	return nil
}
