// Package storage keeps uploaded images on the local filesystem and maps
// them to the public /uploads/... URLs served by the router.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
)

// URLPrefix is the public path under which the uploads root is served.
const URLPrefix = "/uploads/"

const (
	DirPost = "post"
	DirUser = "user"
)

var (
	ErrInvalidDirectory = errors.New("invalid upload directory")
	ErrInvalidFilename  = errors.New("invalid upload filename")
)

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// ValidDirectory reports whether dir is one of the upload subdirectories.
func ValidDirectory(dir string) bool {
	return dir == DirPost || dir == DirUser
}

// URLFor returns the public URL of name inside dir.
func URLFor(dir, name string) string {
	return URLPrefix + path.Join(dir, name)
}

// Save writes the uploaded file under dir using its original base name.
// An existing file with the same name is overwritten.
func (s *Store) Save(fh *multipart.FileHeader, dir string) (string, error) {
	if !ValidDirectory(dir) {
		return "", ErrInvalidDirectory
	}
	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if name == "/" || name == "." || name == "" {
		return "", ErrInvalidFilename
	}

	target := filepath.Join(s.root, dir)
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(target, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return URLFor(dir, name), nil
}

// ResolveURL maps a public upload URL to a path under the root. It returns
// false for empty URLs and anything that would escape the root.
func (s *Store) ResolveURL(url string) (string, bool) {
	if !strings.HasPrefix(url, URLPrefix) {
		return "", false
	}
	rel := path.Clean(strings.TrimPrefix(url, URLPrefix))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", false
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), true
}

// ModTime returns the last modification time of the file at p.
func (s *Store) ModTime(p string) (time.Time, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Remove deletes the file at p. A file that is already gone is not an error.
func (s *Store) Remove(p string) error {
	err := os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info.Printf("삭제할 파일이 이미 없습니다: %s", p)
		return nil
	}
	return err
}
