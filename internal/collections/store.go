package collections

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the maximum file size to index (1 MB).
const DefaultMaxFileSize int64 = 1 << 20

var (
	ErrNotFound      = errors.New("collection not found")
	ErrAlreadyExists = errors.New("collection already exists")
	ErrInvalidName   = errors.New("invalid collection name")
	ErrInvalidPath   = errors.New("invalid file path")
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// File is one document in a collection, as seen by the sync engine.
type File struct {
	Path     string // slash-separated path relative to the collection root
	Content  string
	Size     int64
	Modified time.Time
	Hash     string // SHA-256 hex digest of Content
}

// Info summarizes a collection for listings.
type Info struct {
	Name      string    `json:"name"`
	FileCount int       `json:"file_count"`
	CreatedAt time.Time `json:"created_at"`
}

// DeleteHook is invoked when a collection is deleted, before its files are
// removed. The sync engine registers one to cascade-delete vectors and
// metadata.
type DeleteHook func(ctx context.Context, name string) error

// Store keeps collections as directories of text files under a root dir.
type Store struct {
	root        string
	include     []string
	exclude     []string
	maxFileSize int64
	onDelete    DeleteHook
}

// Options tunes file listing.
type Options struct {
	Include     []string
	Exclude     []string
	MaxFileSize int64
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating collections directory: %w", err)
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	include := opts.Include
	if len(include) == 0 {
		include = []string{"**"}
	}
	return &Store{
		root:        dir,
		include:     include,
		exclude:     opts.Exclude,
		maxFileSize: maxSize,
	}, nil
}

// SetDeleteHook registers the cascade hook fired by Delete.
func (s *Store) SetDeleteHook(h DeleteHook) { s.onDelete = h }

func (s *Store) dir(name string) string { return filepath.Join(s.root, name) }

// Create makes a new, empty collection.
func (s *Store) Create(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := s.dir(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	return os.MkdirAll(path, 0o755)
}

// Exists reports whether the collection exists.
func (s *Store) Exists(name string) bool {
	if !nameRe.MatchString(name) {
		return false
	}
	info, err := os.Stat(s.dir(name))
	return err == nil && info.IsDir()
}

// List returns all collections sorted by name.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading collections directory: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() || !nameRe.MatchString(e.Name()) {
			continue
		}
		files, err := s.ListFiles(e.Name())
		if err != nil {
			return nil, err
		}
		fi, _ := e.Info()
		var created time.Time
		if fi != nil {
			created = fi.ModTime()
		}
		infos = append(infos, Info{Name: e.Name(), FileCount: len(files), CreatedAt: created})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Names returns the collection names, sorted.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading collections directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && nameRe.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the collection and its files, firing the delete hook first
// so derived state (vectors, sync metadata) is cascaded.
func (s *Store) Delete(ctx context.Context, name string) error {
	if !s.Exists(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.onDelete != nil {
		if err := s.onDelete(ctx, name); err != nil {
			return fmt.Errorf("cascade delete for %q: %w", name, err)
		}
	}
	return os.RemoveAll(s.dir(name))
}

// ListFiles returns every text file in the collection that passes the
// include/exclude globs and size limit, with content and hash.
func (s *Store) ListFiles(name string) ([]File, error) {
	if !s.Exists(name) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	root := s.dir(name)
	var files []File

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if !s.matches(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > s.maxFileSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		files = append(files, File{
			Path:     relPath,
			Content:  string(content),
			Size:     info.Size(),
			Modified: info.ModTime(),
			Hash:     HashBytes(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking collection %q: %w", name, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// WriteFile creates or replaces a file in the collection.
func (s *Store) WriteFile(name, relPath string, content []byte) error {
	if !s.Exists(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	clean, err := s.cleanPath(relPath)
	if err != nil {
		return err
	}
	full := filepath.Join(s.dir(name), clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating file directory: %w", err)
	}
	return os.WriteFile(full, content, 0o644)
}

// DeleteFile removes a file from the collection.
func (s *Store) DeleteFile(name, relPath string) error {
	if !s.Exists(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	clean, err := s.cleanPath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir(name), clean)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
		}
		return err
	}
	return nil
}

// matches applies the include and exclude glob patterns.
func (s *Store) matches(relPath string) bool {
	included := false
	for _, pattern := range s.include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return false
		}
	}
	return true
}

// cleanPath normalizes a user-supplied relative path and rejects traversal.
func (s *Store) cleanPath(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." || clean == "" || filepath.IsAbs(clean) ||
		clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return clean, nil
}
