// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package gate

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher hot-reloads a gate's keyword list from a file. The file holds
// one keyword per line; blank lines and '#' comments are ignored.
type Watcher struct {
	gate *Gate
	path string

	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	stop     chan struct{}
}

// NewWatcher loads the keywords file into the gate and returns a watcher
// ready to be started.
func NewWatcher(g *Gate, path string) (*Watcher, error) {
	w := &Watcher{
		gate: g,
		path: path,
		stop: make(chan struct{}),
	}
	if err := w.load(); err != nil {
		return nil, err
	}
	return w, nil
}

// Start begins watching the keywords file for changes in the background.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					// Editors often write in two events; let the file settle.
					time.Sleep(100 * time.Millisecond)
					if err := w.load(); err != nil {
						log.Errorf("Failed to reload emergency keywords: %v", err)
						continue
					}
					log.Infof("Emergency keywords reloaded from %s (%d entries)", w.path, len(w.gate.Keywords()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("Keywords watcher error: %v", err)
			case <-w.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the background watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

func (w *Watcher) load() error {
	f, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var keywords []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return w.gate.Reload(keywords)
}
