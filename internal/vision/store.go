package vision

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store loads and caches template images from a directory.
//
// Templates are PNG files; the template name is the filename without
// its extension, so "close-button.png" is referenced as "close-button"
// in automation configurations.
//
// All methods are safe for concurrent use.
type Store struct {
	dir string

	mu        sync.RWMutex
	templates map[string]*Template
}

// NewStore creates a store rooted at dir. Templates load lazily on
// first Get; call Preload to fail fast on unreadable files.
func NewStore(dir string) *Store {
	return &Store{
		dir:       dir,
		templates: make(map[string]*Template),
	}
}

// Get returns the named template, loading it from disk on first use.
func (s *Store) Get(name string) (*Template, error) {
	s.mu.RLock()
	tpl, ok := s.templates[name]
	s.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := s.load(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.templates[name] = tpl
	s.mu.Unlock()
	return tpl, nil
}

// Preload loads every PNG in the template directory, returning the
// first error encountered.
func (s *Store) Preload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading template dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".png")
		if _, err := s.Get(name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the names of all cached templates, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Invalidate drops the cache so changed template files are re-read on
// next use.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.templates = make(map[string]*Template)
	s.mu.Unlock()
}

// load reads and prepares one template from disk.
func (s *Store) load(name string) (*Template, error) {
	path := filepath.Join(s.dir, name+".png")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("opening template %s: %w", name, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: template %s: %w", ErrDecodeFailed, name, err)
	}

	return NewTemplate(name, img), nil
}

// NewTemplate prepares an image for matching: grayscale conversion plus
// precomputed mean and norm for the correlation denominator.
func NewTemplate(name string, img image.Image) *Template {
	plane := toGrayPlane(img)

	tpl := &Template{
		Name:   name,
		Width:  plane.width,
		Height: plane.height,
		pixels: plane.pixels,
	}

	n := float64(len(tpl.pixels))
	var sum float64
	for _, p := range tpl.pixels {
		sum += p
	}
	tpl.mean = sum / n

	var sq float64
	for _, p := range tpl.pixels {
		d := p - tpl.mean
		sq += d * d
	}
	tpl.norm = math.Sqrt(sq)

	return tpl
}
