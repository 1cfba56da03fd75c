package identity

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// adminFile is the on-disk allowlist format
type adminFile struct {
	SystemAdmins []string `yaml:"systemAdmins"`
}

// FileProvider is a Static allowlist loaded from a YAML file and reloaded
// whenever the file changes
type FileProvider struct {
	*Static
	path    string
	watcher *fsnotify.Watcher
	logger  *observability.Logger
	done    chan struct{}
}

// NewFileProvider loads path and starts watching its directory
func NewFileProvider(path string, logger *observability.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	p := &FileProvider{
		Static: NewStatic(),
		path:   path,
		logger: logger.WithField("admin_file", path),
		done:   make(chan struct{}),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	p.watcher = watcher

	go p.watch()
	return p, nil
}

// Reload rereads the allowlist file. A file that lists nobody while admins
// are loaded is rejected; a truncate-then-write save looks like that
// between the two steps.
func (p *FileProvider) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read admin file: %w", err)
	}
	var f adminFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse admin file: %w", err)
	}

	count := 0
	for _, id := range f.SystemAdmins {
		if id != "" {
			count++
		}
	}
	if current := p.Len(); count == 0 && current > 0 {
		return fmt.Errorf("admin file lists no system admins, keeping the previous %d", current)
	}

	p.Set(f.SystemAdmins)
	p.logger.WithField("count", count).Info("system admin allowlist loaded")
	return nil
}

func (p *FileProvider) watch() {
	defer close(p.done)
	target := filepath.Clean(p.path)
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Keep the previous list when the new file is unreadable or empty
			if err := p.Reload(); err != nil {
				p.logger.WithError(err).Warn("admin file reload failed")
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.WithError(err).Warn("admin file watcher error")
		}
	}
}

// Close stops watching
func (p *FileProvider) Close() error {
	err := p.watcher.Close()
	<-p.done
	return err
}
