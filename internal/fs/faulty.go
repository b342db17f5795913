package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault error")

// Fault defines specific failure behavior.
type Fault struct {
	FailAfterReads int64 // Fail every read after this many successful reads OF THIS FILE. -1 to disable.
	FailAtOffset   int64 // Fail reads covering this byte offset. -1 to disable.
	ShortRead      bool  // Return half the requested bytes without an error.
	FailOnClose    bool
	Err            error
}

// NoFault is a Fault that never fires.
var NoFault = Fault{FailAfterReads: -1, FailAtOffset: -1}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS      FileSystem
	mu      sync.Mutex
	rules   map[string]Fault // Filename pattern -> Fault
	Default Fault            // Fallback

	reads atomic.Int64
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:      fs,
		rules:   make(map[string]Fault),
		Default: NoFault,
	}
}

// AddRule adds a fault injection rule for a specific file pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// Reads returns the total number of ReadAt calls across all files.
func (f *FaultyFS) Reads() int64 {
	return f.reads.Load()
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	fault := f.Default
	// Match pattern (last winning match)
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
		}
	}
	f.mu.Unlock()

	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	return &faultyFile{File: file, fs: f, fault: fault}, nil
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

type faultyFile struct {
	File
	fs    *FaultyFS
	fault Fault
	reads atomic.Int64
}

func (ff *faultyFile) ReadAt(p []byte, off int64) (int, error) {
	ff.fs.reads.Add(1)
	n := ff.reads.Add(1)

	if ff.fault.FailAfterReads >= 0 && n > ff.fault.FailAfterReads {
		return 0, ff.fault.Err
	}
	if ff.fault.FailAtOffset >= 0 && ff.fault.FailAtOffset >= off && ff.fault.FailAtOffset < off+int64(len(p)) {
		return 0, ff.fault.Err
	}
	if ff.fault.ShortRead && len(p) > 1 {
		return ff.File.ReadAt(p[:len(p)/2], off)
	}
	return ff.File.ReadAt(p, off)
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fault.Err
	}
	return ff.File.Close()
}
