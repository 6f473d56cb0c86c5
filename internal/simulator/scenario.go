// Package simulator fabricates event lifecycles and posts them to the ingest
// API the way a detector would.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Scenario shapes the fabricated traffic. Ranges are inclusive [lo, hi].
type Scenario struct {
	Name              string     `yaml:"name"`
	EventRateSecRange [2]float64 `yaml:"event_rate_sec_range"`
	SeverityBaseRange [2]int     `yaml:"severity_base_range"`
	StepsRange        [2]int     `yaml:"steps_range"`
	Labels            []string   `yaml:"labels"`
	EventTypes        []string   `yaml:"event_types"`
}

func (s Scenario) Validate() error {
	var errs []error
	if s.EventRateSecRange[0] < 0 || s.EventRateSecRange[0] > s.EventRateSecRange[1] {
		errs = append(errs, fmt.Errorf("event_rate_sec_range %v is not a valid range", s.EventRateSecRange))
	}
	if s.SeverityBaseRange[0] < 0 || s.SeverityBaseRange[1] > 100 || s.SeverityBaseRange[0] > s.SeverityBaseRange[1] {
		errs = append(errs, fmt.Errorf("severity_base_range %v must lie within [0,100]", s.SeverityBaseRange))
	}
	if s.StepsRange[0] < 0 || s.StepsRange[0] > s.StepsRange[1] {
		errs = append(errs, fmt.Errorf("steps_range %v is not a valid range", s.StepsRange))
	}
	if len(s.Labels) == 0 {
		errs = append(errs, errors.New("labels must not be empty"))
	}
	if len(s.EventTypes) == 0 {
		errs = append(errs, errors.New("event_types must not be empty"))
	}
	return errors.Join(errs...)
}

func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return s, nil
}

// ScenarioStore holds the active scenario. A reload that fails keeps the
// previous one.
type ScenarioStore struct {
	path    string
	mu      sync.RWMutex
	current Scenario
	modTime time.Time
}

func NewScenarioStore(path string) (*ScenarioStore, error) {
	st := &ScenarioStore{path: path}
	if err := st.Reload(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *ScenarioStore) Current() Scenario {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

func (st *ScenarioStore) Path() string { return st.path }

func (st *ScenarioStore) Reload() error {
	info, err := os.Stat(st.path)
	if err != nil {
		return fmt.Errorf("stat scenario: %w", err)
	}
	s, err := LoadScenario(st.path)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.current = s
	st.modTime = info.ModTime()
	st.mu.Unlock()
	return nil
}

// ReloadIfChanged reloads only when the file's mtime moved.
func (st *ScenarioStore) ReloadIfChanged() (bool, error) {
	info, err := os.Stat(st.path)
	if err != nil {
		return false, err
	}
	st.mu.RLock()
	same := info.ModTime().Equal(st.modTime)
	st.mu.RUnlock()
	if same {
		return false, nil
	}
	return true, st.Reload()
}

// Watch reloads the scenario when its file changes until ctx is done. It
// watches the containing directory so editors that replace the file are
// seen, and polls as a fallback when fsnotify is unavailable.
func (st *ScenarioStore) Watch(ctx context.Context, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = watcher.Add(filepath.Dir(st.path)); err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		log.Printf("[Scenario] fsnotify unavailable (%v), polling every %v", err, pollInterval)
		go st.poll(ctx, pollInterval)
		return
	}

	go func() {
		defer watcher.Close()
		name := filepath.Clean(st.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				// editors often write in several steps
				time.Sleep(100 * time.Millisecond)
				st.logReload(st.ReloadIfChanged())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Scenario] watcher error: %v", err)
			}
		}
	}()
}

func (st *ScenarioStore) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.logReload(st.ReloadIfChanged())
		}
	}
}

func (st *ScenarioStore) logReload(changed bool, err error) {
	switch {
	case err != nil:
		log.Printf("[Scenario] reload failed, keeping %q: %v", st.Current().Name, err)
	case changed:
		log.Printf("[Scenario] reloaded %q from %s", st.Current().Name, st.path)
	}
}
