package loader

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/fsnotify/fsnotify"
)

// shaderWatcher reloads fragment shader files into a scene when they change on disk.
// Events are debounced per file; reads and validation run on a worker pool and the result
// reaches the scene through Scene.Post, so the render goroutine never touches the filesystem.
type shaderWatcher struct {
	mu *sync.Mutex

	scene scene.Scene
	fs    *fsnotify.Watcher
	pool  worker.DynamicWorkerPool

	// files maps cleaned absolute paths to their pending debounce timer (nil when idle).
	files map[string]*time.Timer
	// dirs counts watched files per directory so a directory is removed with its last file.
	dirs map[string]int

	debounce      time.Duration
	rejectInvalid bool
	onError       func(path string, err error)

	taskID atomic.Int64
	done   chan struct{}
	wg     sync.WaitGroup
}

func newShaderWatcher(s scene.Scene, workers int, debounce time.Duration, rejectInvalid bool, onError func(string, error)) (*shaderWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &shaderWatcher{
		mu:            &sync.Mutex{},
		scene:         s,
		fs:            fsw,
		pool:          worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		files:         make(map[string]*time.Timer),
		dirs:          make(map[string]int),
		debounce:      debounce,
		rejectInvalid: rejectInvalid,
		onError:       onError,
		done:          make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Watch starts reloading path on change. The parent directory is watched so editors that save by
// writing a temp file and renaming it over the original are still seen.
func (w *shaderWatcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[abs]; ok {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[abs] = nil
	common.Logger().Debug("watching shader", "path", abs)
	return nil
}

// Unwatch stops reloading path.
func (w *shaderWatcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	timer, ok := w.files[abs]
	if !ok {
		return nil
	}
	if timer != nil {
		timer.Stop()
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		return w.fs.Remove(dir)
	}
	return nil
}

func (w *shaderWatcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule(filepath.Clean(event.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("shader watcher error", "error", err)
		}
	}
}

// schedule (re)starts the debounce timer for a watched file. Bursts of writes collapse into one reload.
func (w *shaderWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	timer, ok := w.files[path]
	if !ok {
		return
	}
	if timer != nil {
		timer.Stop()
	}
	w.files[path] = time.AfterFunc(w.debounce, func() {
		w.submit(path)
	})
}

func (w *shaderWatcher) submit(path string) {
	select {
	case <-w.done:
		return
	default:
	}

	w.pool.SubmitTask(worker.Task{
		ID:      int(w.taskID.Add(1)),
		Payload: path,
		Do: func() (any, error) {
			err := w.reload(path)
			if err != nil {
				common.Logger().Warn("shader reload failed", "path", path, "error", err)
				if w.onError != nil {
					w.onError(path, err)
				}
			}
			return nil, err
		},
	})
}

// reload reads path, optionally validates it against the scene's current uniform struct and posts it.
func (w *shaderWatcher) reload(path string) error {
	src, err := shader.ReadSource(path)
	if err != nil {
		return err
	}
	if w.rejectInvalid {
		fs, err := shader.AssembleFragment(w.scene.Snapshot().Uniforms.Data.StructText, src)
		if err != nil {
			return err
		}
		if err := shader.Validate(fs.Source()); err != nil {
			return err
		}
	}
	if !w.scene.Post(scene.ShaderChanged{Source: src}) {
		return fmt.Errorf("scene message queue full, dropped reload of %s", path)
	}
	common.Logger().Info("shader reloaded", "path", path, "bytes", len(src))
	return nil
}

// Close stops watching, cancels pending reloads and stops the worker pool.
func (w *shaderWatcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
	}
	close(w.done)
	for path, timer := range w.files {
		if timer != nil {
			timer.Stop()
		}
		w.files[path] = nil
	}
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	w.pool.Stop()
	return err
}
