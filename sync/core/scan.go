package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/janus-sync/janus/internal/contextutil"
	"github.com/janus-sync/janus/internal/logging"
)

// ScanOptions configures a single Scan invocation.
type ScanOptions struct {
	// Threads sizes the bounded worker pool used for directory enumeration
	// and, separately, the backpressure semaphore used for scheduling hash
	// jobs. A value <= 0 selects runtime.NumCPU().
	Threads int
	// HashAlgorithm selects the digest function used to hash regular files.
	HashAlgorithm HashAlgorithm
	// Logger receives diagnostic output. A nil logger selects
	// logging.RootLogger.
	Logger *logging.Logger
}

// threadCount resolves the effective worker count for a ScanOptions value.
func (o ScanOptions) threadCount() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.NumCPU()
}

// ScanResult bundles the frozen Inventory produced by a scan with the
// side-channel of per-entry problems encountered along the way; unreadable
// entries are recorded but do not abort the scan.
type ScanResult struct {
	Inventory Inventory
	Problems  []Problem
}

// scanJob is a single unit of directory-enumeration work.
type scanJob struct {
	absPath string
	relPath string
}

// scanner holds the mutable state shared by a single Scan invocation's
// worker pool.
type scanner struct {
	root      string
	hasher    *Hasher
	logger    *logging.Logger
	dirSem    chan struct{} // bounds concurrent directory reads
	hashSem   chan struct{} // bounds outstanding scheduled hash jobs (threads*2 capacity)
	ctx       context.Context
	cancel    context.CancelFunc
	pending   sync.WaitGroup // outstanding directory jobs
	hashGroup sync.WaitGroup // outstanding hash jobs

	mu       sync.Mutex
	entries  []FileMeta
	problems []Problem
	fatal    error
}

// Scan walks root recursively and returns a deterministic, sorted Inventory
// plus a side-channel of per-entry problems. It returns a
// non-nil error only for ErrRootUnavailable-class failures and, when ctx is
// cancelled, ErrScanCancelled; per-entry failures are reported in
// ScanResult.Problems instead.
func Scan(ctx context.Context, root string, options ScanOptions) (ScanResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: %v", ErrRootUnavailable, err)
	}
	info, err := os.Lstat(absRoot)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: %v", ErrRootUnavailable, err)
	}
	if !info.IsDir() {
		return ScanResult{}, fmt.Errorf("%w: root is not a directory", ErrRootUnavailable)
	}

	threads := options.threadCount()
	logger := options.Logger
	if logger == nil {
		logger = logging.RootLogger
	}
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &scanner{
		root:    absRoot,
		hasher:  NewHasher(options.HashAlgorithm),
		logger:  logger.Sublogger("scanner"),
		dirSem:  make(chan struct{}, threads),
		hashSem: make(chan struct{}, threads*2),
		ctx:     scanCtx,
		cancel:  cancel,
	}

	s.pending.Add(1)
	go s.scanDirectory(scanJob{absPath: absRoot, relPath: ""})

	// Wait for directory enumeration to finish, then for any hash jobs it
	// scheduled along the way. The scan is only complete once both have
	// drained.
	s.pending.Wait()
	s.hashGroup.Wait()

	if contextutil.IsCancelled(ctx) {
		return ScanResult{}, ErrScanCancelled
	}
	if s.fatal != nil {
		return ScanResult{}, s.fatal
	}

	inventory := sortInventory(absRoot, s.entries)
	return ScanResult{Inventory: inventory, Problems: s.problems}, nil
}

// recordProblem appends a non-fatal problem to the side-channel.
func (s *scanner) recordProblem(p Problem) {
	s.mu.Lock()
	s.problems = append(s.problems, p)
	s.mu.Unlock()
}

// recordEntry appends a completed FileMeta to the inventory being built.
func (s *scanner) recordEntry(m FileMeta) {
	s.mu.Lock()
	s.entries = append(s.entries, m)
	s.mu.Unlock()
}

// recordFatal records the root-level fatal error and begins cancelling
// outstanding work. Only the first fatal error is kept.
func (s *scanner) recordFatal(err error) {
	s.mu.Lock()
	if s.fatal == nil {
		s.fatal = err
	}
	s.mu.Unlock()
	s.cancel()
}

// scanDirectory reads one directory's entries, recursing into
// subdirectories (each guarded by the bounded worker pool via dirSem) and
// scheduling hash jobs for regular files. It calls s.pending.Done exactly
// once, mirroring the Add(1) performed by its caller.
func (s *scanner) scanDirectory(job scanJob) {
	defer s.pending.Done()

	if contextutil.IsCancelled(s.ctx) {
		return
	}

	select {
	case s.dirSem <- struct{}{}:
	case <-s.ctx.Done():
		return
	}
	dirEntries, err := os.ReadDir(job.absPath)
	<-s.dirSem

	if err != nil {
		s.recordProblem(Problem{
			Path: job.relPath,
			Kind: ErrorKindEntryUnreadable,
			Err:  errors.Wrap(err, "unable to read directory"),
		})
		return
	}

	// os.ReadDir already returns entries sorted by filename, so each
	// directory is visited in ascending leaf-name order. The
	// final inventory-wide sort by RelPath happens once in Scan.
	for _, de := range dirEntries {
		name := de.Name()
		childAbs := filepath.Join(job.absPath, name)
		childRel := joinRel(job.relPath, name)

		fileInfo, err := de.Info()
		if err != nil {
			s.recordProblem(Problem{
				Path: childRel,
				Kind: ErrorKindEntryUnreadable,
				Err:  errors.Wrap(err, "unable to stat entry"),
			})
			continue
		}

		mode := fileInfo.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			target, err := os.Readlink(childAbs)
			if err != nil {
				s.recordProblem(Problem{
					Path: childRel,
					Kind: ErrorKindEntryUnreadable,
					Err:  errors.Wrap(err, "unable to read symbolic link target"),
				})
				continue
			}
			s.recordEntry(FileMeta{
				RelPath: childRel,
				Kind:    EntryKindSymlink,
				Target:  target,
				ModTime: fileInfo.ModTime().UnixNano(),
			})
		case mode.IsDir():
			// Symlinks to directories are handled above and never followed:
			// os.ReadDir reports them via de.Type(), and mode.IsDir() here
			// only matches real directories because we already branched on
			// ModeSymlink.
			s.recordEntry(FileMeta{
				RelPath: childRel,
				Kind:    EntryKindDirectory,
				Mode:    uint32(mode.Perm()),
				ModTime: fileInfo.ModTime().UnixNano(),
			})
			s.pending.Add(1)
			go s.scanDirectory(scanJob{absPath: childAbs, relPath: childRel})
		case mode.IsRegular():
			s.scheduleHash(childAbs, childRel, uint64(fileInfo.Size()), uint32(mode.Perm()), fileInfo.ModTime().UnixNano())
		default:
			// Devices, sockets, and other special files are not
			// synchronizable content; skip them as unreadable rather than
			// silently misrepresenting their kind.
			s.recordProblem(Problem{
				Path: childRel,
				Kind: ErrorKindEntryUnreadable,
				Err:  errors.New("unsupported filesystem entry type"),
			})
		}
	}
}

// scheduleHash schedules a hash computation for a regular file, respecting
// the threads*2 backpressure semaphore so that a large tree
// of small directories can't queue unbounded pending hash jobs.
func (s *scanner) scheduleHash(absPath, relPath string, size uint64, mode uint32, modTime int64) {
	select {
	case s.hashSem <- struct{}{}:
	case <-s.ctx.Done():
		return
	}

	s.hashGroup.Add(1)
	go func() {
		defer s.hashGroup.Done()
		defer func() { <-s.hashSem }()

		if contextutil.IsCancelled(s.ctx) {
			return
		}

		var digest Digest
		if size == 0 {
			digest = s.hasher.EmptyDigest()
		} else {
			d, err := s.hasher.HashFile(s.ctx, absPath)
			if err != nil {
				s.recordProblem(Problem{
					Path: relPath,
					Kind: ErrorKindEntryUnreadable,
					Err:  errors.Wrap(err, "unable to hash file"),
				})
				return
			}
			digest = d
		}

		s.recordEntry(FileMeta{
			RelPath: relPath,
			Size:    size,
			ModTime: modTime,
			Mode:    mode,
			Kind:    EntryKindRegular,
			Hash:    digest,
		})
	}()
}

// joinRel joins a relative directory path and a leaf name into forward-slash
// canonical form.
func joinRel(dirRel, name string) string {
	if dirRel == "" {
		return name
	}
	return dirRel + "/" + name
}
