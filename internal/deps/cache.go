package deps

import (
	"container/list"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ije/gox/log"
)

// ErrBuildTimeout is returned to a caller whose wait on an in-flight build expires.
var ErrBuildTimeout = errors.New("timed out waiting for the build")

// BuildState is the build state of a specifier.
type BuildState int

const (
	NotStarted BuildState = iota
	Building
	Cached
)

func (s BuildState) String() string {
	switch s {
	case Building:
		return "building"
	case Cached:
		return "cached"
	default:
		return "not-started"
	}
}

// Options configures a BuildCache.
type Options struct {
	// CacheDir is the private cache directory, artifacts are written to `<CacheDir>/deps/`.
	CacheDir string
	Bundler  Bundler
	// Concurrency is the maximum number of builds running at the same time.
	Concurrency int
	// WaitTime bounds how long a caller waits for a build.
	WaitTime time.Duration
	Logger   *log.Logger
}

// BuildCache maps bare specifiers to built artifacts. Concurrent requests for a specifier
// that is not built yet share a single build.
type BuildCache struct {
	cacheDir string
	bundler  Bundler
	waitTime time.Duration
	logger   *log.Logger

	lock    sync.Mutex
	records map[string]string
	tasks   map[string]*buildTask
	queue   *list.List
	idles   int
}

type buildTask struct {
	specifier string
	entry     string
	el        *list.Element
	waitChans []chan *buildOutput
	createdAt time.Time
	startedAt time.Time
	pending   bool
}

type buildOutput struct {
	artifact string
	err      error
}

// NewBuildCache creates a new BuildCache.
func NewBuildCache(options Options) *BuildCache {
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	waitTime := options.WaitTime
	if waitTime <= 0 {
		waitTime = 30 * time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = &log.Logger{}
	}
	return &BuildCache{
		cacheDir: options.CacheDir,
		bundler:  options.Bundler,
		waitTime: waitTime,
		logger:   logger,
		records:  map[string]string{},
		tasks:    map[string]*buildTask{},
		queue:    list.New(),
		idles:    concurrency,
	}
}

// ArtifactPath returns the artifact path of the specifier relative to the cache directory.
func ArtifactPath(specifier string) string {
	return filepath.Join("deps", filepath.FromSlash(specifier)+".js")
}

// Lookup returns the absolute artifact path of a built specifier.
func (c *BuildCache) Lookup(specifier string) (string, bool) {
	c.lock.Lock()
	artifact, ok := c.records[specifier]
	c.lock.Unlock()
	if !ok {
		return "", false
	}
	return filepath.Join(c.cacheDir, artifact), true
}

// State returns the build state of the specifier.
func (c *BuildCache) State(specifier string) BuildState {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.records[specifier]; ok {
		return Cached
	}
	if _, ok := c.tasks[specifier]; ok {
		return Building
	}
	return NotStarted
}

// GetOrBuild returns the absolute artifact path of the specifier, building the entry file
// if the specifier is not cached yet. Only one build per specifier is in flight at a time,
// other callers wait for its result. A failed build is not cached.
//
// Cancelling ctx stops waiting but never cancels the build.
func (c *BuildCache) GetOrBuild(ctx context.Context, specifier string, entry string) (string, error) {
	c.lock.Lock()
	if artifact, ok := c.records[specifier]; ok {
		c.lock.Unlock()
		return filepath.Join(c.cacheDir, artifact), nil
	}
	ch := c.add(specifier, entry)
	c.lock.Unlock()

	c.schedule()

	timer := time.NewTimer(c.waitTime)
	defer timer.Stop()

	select {
	case output := <-ch:
		if output.err != nil {
			return "", output.err
		}
		return filepath.Join(c.cacheDir, output.artifact), nil
	case <-timer.C:
		return "", ErrBuildTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// add joins the in-flight task of the specifier, or claims a new one.
// The caller must hold the lock.
func (c *BuildCache) add(specifier string, entry string) chan *buildOutput {
	// buffered so that a waiter that gave up never blocks the fan-out
	ch := make(chan *buildOutput, 1)

	task, ok := c.tasks[specifier]
	if ok {
		task.waitChans = append(task.waitChans, ch)
		return ch
	}

	task = &buildTask{
		specifier: specifier,
		entry:     entry,
		waitChans: []chan *buildOutput{ch},
		createdAt: time.Now(),
		pending:   true,
	}
	task.el = c.queue.PushBack(task)
	c.tasks[specifier] = task
	return ch
}

func (c *BuildCache) schedule() {
	var task *buildTask

	c.lock.Lock()
	if c.idles > 0 {
		for el := c.queue.Front(); el != nil; el = el.Next() {
			t := el.Value.(*buildTask)
			if t.pending {
				task = t
				break
			}
		}
	}
	if task != nil {
		c.idles--
		task.pending = false
		task.startedAt = time.Now()
	}
	c.lock.Unlock()

	// no available task
	if task == nil {
		return
	}

	go c.run(task)
}

func (c *BuildCache) run(task *buildTask) {
	artifact := ArtifactPath(task.specifier)
	outfile := filepath.Join(c.cacheDir, artifact)

	err := os.MkdirAll(filepath.Dir(outfile), 0755)
	if err == nil {
		c.logger.Debugf("build '%s' from %s", task.specifier, task.entry)
		// not bound to any request, the result is shared with later callers
		err = c.bundler.Bundle(context.Background(), task.entry, outfile)
	}
	if err != nil {
		var buildErr *BuildError
		if errors.As(err, &buildErr) {
			buildErr.Specifier = task.specifier
		} else {
			err = &BuildError{Specifier: task.specifier, Err: err}
		}
		c.logger.Errorf("build '%s': %v", task.specifier, err)
	} else {
		c.logger.Infof("build '%s' done in %v", task.specifier, time.Since(task.startedAt))
	}

	output := &buildOutput{artifact, err}

	c.lock.Lock()
	if err == nil {
		// the first successful build wins
		if existing, ok := c.records[task.specifier]; ok {
			output.artifact = existing
		} else {
			c.records[task.specifier] = artifact
		}
	}
	c.queue.Remove(task.el)
	delete(c.tasks, task.specifier)
	c.idles++
	waitChans := task.waitChans
	c.lock.Unlock()

	for _, ch := range waitChans {
		ch <- output
	}

	// schedule next task if have any
	c.schedule()
}

// Snapshot is a point-in-time view of a BuildCache.
type Snapshot struct {
	Cached   map[string]string `json:"cached"`
	Building []BuildingTask    `json:"building"`
}

// BuildingTask describes a claimed build.
type BuildingTask struct {
	Specifier string    `json:"specifier"`
	Entry     string    `json:"entry"`
	Pending   bool      `json:"pending"`
	Waiters   int       `json:"waiters"`
	CreatedAt time.Time `json:"createdAt"`
	StartedAt time.Time `json:"startedAt,omitempty"`
}

// Snapshot returns the cached artifacts and the in-flight builds in claim order.
func (c *BuildCache) Snapshot() Snapshot {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := Snapshot{
		Cached:   make(map[string]string, len(c.records)),
		Building: make([]BuildingTask, 0, len(c.tasks)),
	}
	for specifier, artifact := range c.records {
		s.Cached[specifier] = filepath.ToSlash(artifact)
	}
	for el := c.queue.Front(); el != nil; el = el.Next() {
		t := el.Value.(*buildTask)
		s.Building = append(s.Building, BuildingTask{
			Specifier: t.specifier,
			Entry:     t.entry,
			Pending:   t.pending,
			Waiters:   len(t.waitChans),
			CreatedAt: t.createdAt,
			StartedAt: t.startedAt,
		})
	}
	return s
}
