// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// Package scanner is the concurrent filesystem-scan core: a
// discovery goroutine feeds a bounded job queue, a fixed worker pool hashes
// each job, and a single writer goroutine applies results to the catalogue
// store in arrival order, so match resolution stays independent of how many
// workers ran.
package scanner

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/uwedeportivo/romcat/internal/archivereader"
	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/eventbus"
	"github.com/uwedeportivo/romcat/internal/hashengine"
	"github.com/uwedeportivo/romcat/internal/romcaterr"
	"github.com/uwedeportivo/romcat/internal/store"
)

// checkpointKind identifies scans in the checkpoints table.
const checkpointKind = "scan"

// DefaultWorkers returns the worker-pool size used when config requests
// "available parallelism" (config.Config.General.Workers == 0).
func DefaultWorkers() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

// Scanner drives one filesystem scan against a catalogue Store, publishing
// progress on an eventbus.Bus as it goes.
type Scanner struct {
	st      *store.Store
	bus     *eventbus.Bus
	workers int
}

// New builds a Scanner. workers <= 0 is replaced by DefaultWorkers().
func New(st *store.Store, bus *eventbus.Bus, workers int) *Scanner {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Scanner{st: st, bus: bus, workers: workers}
}

// Summary is the terminal tally of one scan, mirrored into eventbus.Summary.
type Summary struct {
	DiscoveredFiles int64
	ProcessedFiles  int64
	TotalBytes      int64
	Duration        time.Duration
}

// job is one unit of work: either a plain file or one member of an archive.
type job struct {
	path    string // canonical catalogue path (see catalog.CanonicalArchiveMemberPath for members)
	name    string // leaf name used for match tie-breaking
	size    int64
	modTime time.Time // zero for archive members; containers rarely carry a trustworthy per-member mtime
	open    func() (readCloser, error)
	archive *archiveHandle // nil for plain files
}

// archiveHandle keeps one opened ZIP/7z container alive until every member
// job discover() queued for it has been hashed by some worker, however late
// that worker gets to it, then closes it exactly once.
type archiveHandle struct {
	remaining int64
	close     func() error
}

func newArchiveHandle(memberCount int, closeFn func() error) *archiveHandle {
	return &archiveHandle{remaining: int64(memberCount), close: closeFn}
}

// release must be called exactly once per member job drawn from this
// archive, regardless of whether hashing it succeeded.
func (h *archiveHandle) release(bus *eventbus.Bus, path string) {
	if atomic.AddInt64(&h.remaining, -1) == 0 {
		if err := h.close(); err != nil {
			bus.Publish(eventbus.Error{Message: path + ": closing archive: " + err.Error()})
		}
	}
}

type readCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

// writeJob carries one hashed file to the writer goroutine.
type writeJob struct {
	file catalog.File
}

// Scan walks root, hashes every discovered file (and every member of every
// ZIP/7z archive it finds), resolves matches against the catalogue and
// records the results, publishing progress events throughout. It resumes
// from a prior checkpoint if one exists for root, and clears that
// checkpoint only on a clean, uncancelled finish.
func (sc *Scanner) Scan(ctx context.Context, root string) (Summary, error) {
	root = filepath.Clean(root)
	sessionID := uuid.New().String()
	started := time.Now()

	resumeAfter := ""
	if cp, ok, err := sc.st.Checkpoint(checkpointKind, root); err != nil {
		return Summary{}, err
	} else if ok {
		resumeAfter = cp.Token
		glog.Infof("scan %s: resuming %s after %s", sessionID, root, resumeAfter)
	}

	sc.bus.Publish(eventbus.Started{Path: root})

	jobs := make(chan *job, 4*sc.workers)
	results := make(chan *writeJob, 4*sc.workers)

	g, gctx := errgroup.WithContext(ctx)

	var discovered int64
	g.Go(func() error {
		defer close(jobs)
		n, err := discover(gctx, root, resumeAfter, jobs, sc.bus)
		discovered = n
		return err
	})

	for i := 0; i < sc.workers; i++ {
		g.Go(func() error {
			return runWorker(gctx, jobs, results, sc.bus)
		})
	}

	writerDone := make(chan error, 1)
	var processed int64
	var totalBytes int64
	go func() {
		writerDone <- sc.runWriter(root, results, &processed, &totalBytes)
	}()

	// The writer drains `results` until it is closed; close it once every
	// worker (and discovery) has finished feeding it.
	go func() {
		_ = g.Wait()
		close(results)
	}()

	werr := <-writerDone
	gerr := g.Wait()

	duration := time.Since(started)
	summary := Summary{
		DiscoveredFiles: discovered,
		ProcessedFiles:  processed,
		TotalBytes:      totalBytes,
		Duration:        duration,
	}

	var filesPerSec, bytesPerSec float64
	if secs := duration.Seconds(); secs > 0 {
		filesPerSec = float64(processed) / secs
		bytesPerSec = float64(totalBytes) / secs
	}
	sc.bus.Publish(eventbus.Summary{
		DiscoveredFiles: discovered,
		ProcessedFiles:  processed,
		TotalBytes:      totalBytes,
		DurationMs:      duration.Milliseconds(),
		FilesPerSec:     filesPerSec,
		BytesPerSec:     bytesPerSec,
	})

	if err := firstNonNil(gerr, werr); err != nil {
		if err == context.Canceled || err == romcaterr.Cancelled {
			glog.Infof("scan %s: cancelled, checkpoint retained", sessionID)
			return summary, romcaterr.Cancelled
		}
		return summary, err
	}

	if err := sc.st.ClearCheckpoint(checkpointKind, root); err != nil {
		return summary, err
	}
	return summary, nil
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// runWorker pulls jobs, hashes them, and forwards completed files to results.
// A hashing failure is reported on the bus and the job is skipped; it never
// aborts the scan: per-file I/O failures are isolated and reported.
func runWorker(ctx context.Context, jobs <-chan *job, results chan<- *writeJob, bus *eventbus.Bus) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-jobs:
			if !ok {
				return nil
			}
			wj, err := hashJob(j, bus)
			if j.archive != nil {
				j.archive.release(bus, j.path)
			}
			if err != nil {
				bus.Publish(eventbus.Error{Message: j.path + ": " + err.Error()})
				continue
			}
			select {
			case results <- wj:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func hashJob(j *job, bus *eventbus.Bus) (*writeJob, error) {
	bus.Publish(eventbus.FileStarted{Path: j.path, Size: j.size})

	r, err := j.open()
	if err != nil {
		return nil, romcaterr.IoError.NewWith(err.Error(), romcaterr.WithPath(j.path))
	}
	defer r.Close()

	triple, err := hashengine.Hash(r, func(bytesSoFar int64) {
		bus.Publish(eventbus.FileProgress{Path: j.path, BytesDone: bytesSoFar, BytesTotal: j.size})
	})
	if err != nil {
		return nil, err
	}

	bus.Publish(eventbus.FileCompleted{Path: j.path, Size: triple.Size})

	return &writeJob{file: catalog.File{
		Path:    j.path,
		Name:    j.name,
		Size:    uint64(triple.Size),
		ModTime: j.modTime,
		Crc32:   triple.Crc32,
		Md5:     triple.Md5,
		Sha1:    triple.Sha1,
	}}, nil
}

// runWriter is the single database writer: it applies every hashed file to
// the store in the order the workers happened to finish it, advancing the
// checkpoint as it goes; all database writes funnel through this one
// goroutine.
func (sc *Scanner) runWriter(root string, results <-chan *writeJob, processed, totalBytes *int64) error {
	for wj := range results {
		res, err := sc.st.ApplyScannedFile(wj.file, root)
		if err != nil {
			sc.bus.Publish(eventbus.Error{Message: wj.file.Path + ": " + err.Error()})
			continue
		}
		*processed++
		*totalBytes += int64(wj.file.Size)

		if err := sc.st.SetCheckpoint(checkpointKind, root, wj.file.Path); err != nil {
			return err
		}
		_ = res // result fields surface through store.Stats / store.Directory, not re-published here
	}
	return nil
}

// discover walks root, dedupes paths it has already seen, skips everything
// up to and including resumeAfter (lexicographic resume point, see
// walkSorted), and expands ZIP/7z archives into one job per member.
func discover(ctx context.Context, root, resumeAfter string, jobs chan<- *job, bus *eventbus.Bus) (int64, error) {
	var discovered int64
	seen := make(map[string]struct{})

	err := walkSorted(root, func(path string, size int64, modTime time.Time) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, dup := seen[path]; dup {
			return nil
		}
		seen[path] = struct{}{}

		if resumeAfter != "" && path <= resumeAfter {
			return nil
		}

		bus.Publish(eventbus.Discovery{Directory: filepath.Dir(path)})

		if isArchiveExt(path) {
			members, closeArchive, err := archivereader.Members(path)
			if err != nil {
				bus.Publish(eventbus.Error{Message: path + ": " + err.Error()})
				return nil
			}
			if len(members) == 0 {
				return closeArchive()
			}

			handle := newArchiveHandle(len(members), closeArchive)
			for _, m := range members {
				m := m
				discovered++
				j := &job{
					path:    catalog.CanonicalArchiveMemberPath(path, m.Name),
					name:    filepath.Base(m.Name),
					size:    m.UncompressedSize,
					open:    func() (readCloser, error) { return m.Open() },
					archive: handle,
				}
				select {
				case jobs <- j:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}

		discovered++
		j := &job{
			path:    path,
			name:    filepath.Base(path),
			size:    size,
			modTime: modTime,
			open:    func() (readCloser, error) { return osOpen(path) },
		}
		select {
		case jobs <- j:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	return discovered, err
}

func isArchiveExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".7z":
		return true
	default:
		return false
	}
}

