package photo

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDir reads every file in dir whose extension is in exts (case-insensitive).
// Subdirectories are not traversed.
func LoadDir(dir string, exts []string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read photo directory: %w", err)
	}
	var sources []Source
	for _, entry := range entries {
		if entry.IsDir() || !AllowedExtension(entry.Name(), exts) {
			continue
		}
		src, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

// AllowedExtension reports whether name ends with one of exts
// (case-insensitive). An empty exts allows everything.
func AllowedExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, allowed := range exts {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// LoadFile reads one image file and its modification time.
func LoadFile(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Source{
		Name:    filepath.Base(path),
		Data:    data,
		ModTime: info.ModTime(),
	}, nil
}

func contentTypeFor(src Source) string {
	if ct := strings.TrimSpace(src.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(src.Name))); ct != "" {
		return ct
	}
	if len(src.Data) > 0 {
		return http.DetectContentType(src.Data)
	}
	return "application/octet-stream"
}
