package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-explorer/internal/catalog"
)

// SourceService reports which catalog files are present in the data dir.
type SourceService struct {
	dataDir string
	cat     *catalog.Catalog
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string, cat *catalog.Catalog) *SourceService {
	return &SourceService{dataDir: dataDir, cat: cat}
}

// List returns every file the catalog references, in catalog order.
func (s *SourceService) List() []SourceFile {
	var files []SourceFile
	for _, ds := range s.cat.Datasets {
		files = append(files, s.stat(ds.ID, "dataset", ds.Path))
	}
	if s.cat.Grid.Geometry != "" {
		files = append(files, s.stat("grid", "grid-geometry", s.cat.Grid.Geometry))
	}
	for _, l := range s.cat.Grid.Layers {
		files = append(files, s.stat(l.ID, "grid-layer", l.Path))
	}
	return files
}

// Missing returns the referenced files that are absent.
func (s *SourceService) Missing() []SourceFile {
	var out []SourceFile
	for _, f := range s.List() {
		if !f.Exists {
			out = append(out, f)
		}
	}
	return out
}

// DataDir returns the directory sources are resolved against.
func (s *SourceService) DataDir() string {
	return s.dataDir
}

func (s *SourceService) stat(id, kind, path string) SourceFile {
	f := SourceFile{ID: id, Kind: kind, Path: path, FileType: fileType(path)}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.dataDir, path)
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return f
	}
	f.Exists = true
	f.Size = formatSize(info.Size())
	return f
}

// Supported source file extensions and their types
var extToType = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
	".csv":     "CSV",
	".shp":     "Shapefile",
}

func fileType(path string) string {
	if t, ok := extToType[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "Unknown"
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
