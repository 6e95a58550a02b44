package devhost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/logger"
)

// Errors returned for paths the workspace refuses to serve
var (
	ErrOutsideWorkspace = errors.New("path is outside the workspace")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNotDirectory     = errors.New("not a directory")
	ErrIsDirectory      = errors.New("is a directory")
)

const defaultMaxCacheEntries = 256

// VFS serves one workspace directory under logical paths: "/" is the
// workspace root and every path is confined to it. Directory listings are
// cached until their TTL expires or fsnotify reports a change.
type VFS struct {
	root         string
	maxFileBytes int64
	log          *logger.Logger

	dirCache   map[string]*dirCacheEntry
	cacheMu    sync.RWMutex
	cacheTTL   time.Duration
	maxEntries int

	watcher     *fsnotify.Watcher
	stopWatch   chan struct{}
	closeOnce   sync.Once
	rootRemoved chan struct{}
	removedOnce sync.Once
}

type dirCacheEntry struct {
	entries   []bridge.DirectoryEntry
	timestamp time.Time
}

// NewVFS opens dir as a workspace. dir must be an existing directory.
func NewVFS(dir string, cacheTTL time.Duration, maxFileBytes int64) (*VFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s: %w", dir, ErrNotDirectory)
	}

	log := logger.Global().WithPrefix("vfs")
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("failed to create file watcher: %v", err)
	}

	v := &VFS{
		root:         root,
		maxFileBytes: maxFileBytes,
		log:          log,
		dirCache:     make(map[string]*dirCacheEntry),
		cacheTTL:     cacheTTL,
		maxEntries:   defaultMaxCacheEntries,
		watcher:      watcher,
		stopWatch:    make(chan struct{}),
		rootRemoved:  make(chan struct{}),
	}

	if watcher != nil {
		if err := watcher.Add(root); err != nil {
			log.Warn("failed to watch workspace root %s: %v", root, err)
		}
		go v.watchFiles()
	}

	return v, nil
}

// Root returns the resolved workspace directory
func (v *VFS) Root() string {
	return v.root
}

// Name returns the workspace's display name
func (v *VFS) Name() string {
	return filepath.Base(v.root)
}

// RootRemoved is closed once the workspace directory itself is removed or
// renamed.
func (v *VFS) RootRemoved() <-chan struct{} {
	return v.rootRemoved
}

// Close stops the file watcher
func (v *VFS) Close() error {
	var err error
	v.closeOnce.Do(func() {
		close(v.stopWatch)
		if v.watcher != nil {
			err = v.watcher.Close()
		}
	})
	return err
}

// watchFiles monitors filesystem events and invalidates cache
func (v *VFS) watchFiles() {
	for {
		select {
		case <-v.stopWatch:
			return
		case event, ok := <-v.watcher.Events:
			if !ok {
				return
			}
			if event.Name == v.root && event.Has(fsnotify.Remove|fsnotify.Rename) {
				v.log.Info("workspace root %s was removed", v.root)
				v.removedOnce.Do(func() { close(v.rootRemoved) })
			}
			v.cacheMu.Lock()
			delete(v.dirCache, filepath.Dir(event.Name))
			delete(v.dirCache, event.Name)
			v.cacheMu.Unlock()
		case err, ok := <-v.watcher.Errors:
			if !ok {
				return
			}
			v.log.Error("filesystem watcher error: %v", err)
		}
	}
}

// InvalidateDirCache removes a directory from cache
func (v *VFS) InvalidateDirCache(logical string) {
	abs, err := v.Resolve(logical)
	if err != nil {
		return
	}
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	delete(v.dirCache, abs)
}

// Resolve maps a logical path to a host path inside the workspace. Parent
// references and symlinks leading out of the workspace are refused.
func (v *VFS) Resolve(logical string) (string, error) {
	if strings.ContainsRune(logical, 0) || strings.Contains(logical, `\`) {
		return "", fmt.Errorf("%s: %w", logical, ErrOutsideWorkspace)
	}
	for _, segment := range strings.Split(logical, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%s: %w", logical, ErrOutsideWorkspace)
		}
	}

	abs := filepath.Join(v.root, filepath.FromSlash(strings.TrimPrefix(logical, "/")))
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if !v.contains(resolved) {
		return "", fmt.Errorf("%s: %w", logical, ErrOutsideWorkspace)
	}
	return resolved, nil
}

func (v *VFS) contains(abs string) bool {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ListDir lists a directory, hidden entries included.
func (v *VFS) ListDir(ctx context.Context, logical string) ([]bridge.DirectoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath, err := v.Resolve(logical)
	if err != nil {
		return nil, err
	}

	// Check cache first
	v.cacheMu.RLock()
	if entry, ok := v.dirCache[absPath]; ok {
		if time.Since(entry.timestamp) < v.cacheTTL {
			v.cacheMu.RUnlock()
			return entry.entries, nil
		}
	}
	v.cacheMu.RUnlock()

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", logical, ErrNotDirectory)
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, err
	}

	result := make([]bridge.DirectoryEntry, 0, len(entries))
	for _, entry := range entries {
		kind := bridge.EntryFile
		if entry.IsDir() {
			kind = bridge.EntryDirectory
		} else if entry.Type()&os.ModeSymlink != 0 {
			if target, err := os.Stat(filepath.Join(absPath, entry.Name())); err == nil && target.IsDir() {
				kind = bridge.EntryDirectory
			}
		}
		result = append(result, bridge.DirectoryEntry{Name: entry.Name(), Type: kind})
	}

	if v.cacheTTL > 0 {
		v.storeListing(absPath, result)
	}

	// Watch this directory for changes
	if v.watcher != nil {
		if err := v.watcher.Add(absPath); err != nil {
			v.log.Warn("failed to add watcher for %s: %v", absPath, err)
		}
	}

	return result, nil
}

func (v *VFS) storeListing(absPath string, entries []bridge.DirectoryEntry) {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()

	// Evict the oldest entry when the cache is full
	if len(v.dirCache) >= v.maxEntries {
		var oldestKey string
		var oldestTime time.Time
		for k, e := range v.dirCache {
			if oldestKey == "" || e.timestamp.Before(oldestTime) {
				oldestKey = k
				oldestTime = e.timestamp
			}
		}
		delete(v.dirCache, oldestKey)
	}
	v.dirCache[absPath] = &dirCacheEntry{
		entries:   entries,
		timestamp: time.Now(),
	}
}

// cachedDirs reports how many listings are cached
func (v *VFS) cachedDirs() int {
	v.cacheMu.RLock()
	defer v.cacheMu.RUnlock()
	return len(v.dirCache)
}

// ReadFile returns a file's content as text. Files above the size limit are
// refused rather than truncated.
func (v *VFS) ReadFile(ctx context.Context, logical string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	absPath, err := v.StatFile(logical)
	if err != nil {
		return "", err
	}

	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if v.maxFileBytes > 0 {
		r = io.LimitReader(f, v.maxFileBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if v.maxFileBytes > 0 && int64(len(data)) > v.maxFileBytes {
		return "", fmt.Errorf("%s exceeds %d bytes: %w", logical, v.maxFileBytes, ErrFileTooLarge)
	}
	return string(data), nil
}

// StatFile checks that logical names a regular file and returns its host path
func (v *VFS) StatFile(logical string) (string, error) {
	absPath, err := v.Resolve(logical)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", logical, ErrIsDirectory)
	}
	return absPath, nil
}
