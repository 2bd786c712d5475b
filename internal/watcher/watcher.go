// file: internal/watcher/watcher.go
// version: 3.1.0
// guid: b2c3d4e5-f6a7-8901-bcde-f23456789012

package watcher

import (
	"crypto/sha256"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default debounce period.
const DefaultDebounce = 2 * time.Second

// Callback is invoked with the watched file path once its content changed.
type Callback func(path string)

// Watcher follows a single file. Bursts of events are coalesced into one
// callback after the debounce period, and the callback is skipped when the
// file content is byte-identical to the last version seen. The parent
// directory is watched so rename-over saves are noticed.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	callback Callback

	done     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	timer   *time.Timer
	lastSum [sha256.Size]byte
	started bool
}

// New creates a Watcher. Pass 0 for debounce to use DefaultDebounce.
func New(callback Callback, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		debounce: debounce,
		callback: callback,
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Start begins watching path. The content present at start is taken as
// already seen. Calling Start twice is a no-op.
func (w *Watcher) Start(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw
	w.path = abs
	w.lastSum, _ = checksum(abs)
	w.started = true

	log.Printf("[INFO] watcher: watching %s", abs)
	go w.loop()
	return nil
}

// Stop ends the watch and waits for the event loop to exit. A pending
// debounced callback is dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}

	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
		<-w.loopDone

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) loop() {
	defer close(w.loopDone)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == w.path && event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) != 0 {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] watcher: %v", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	sum, err := checksum(w.path)

	w.mu.Lock()
	w.timer = nil
	if err != nil {
		w.mu.Unlock()
		log.Printf("[WARN] watcher: cannot read %s: %v", w.path, err)
		return
	}
	if sum == w.lastSum {
		w.mu.Unlock()
		return
	}
	w.lastSum = sum
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	log.Printf("[INFO] watcher: %s changed", w.path)
	if w.callback != nil {
		w.callback(w.path)
	}
}

func checksum(path string) ([sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}
