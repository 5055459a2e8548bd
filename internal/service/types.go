// Package service contains the explorer's process-wide state: live sessions,
// the source file inventory and the event bus that reports data loads.
package service

import "time"

// SourceFile is one file the catalog points at.
type SourceFile struct {
	ID       string `json:"id" doc:"Dataset or grid layer ID" example:"yeeap"`
	Kind     string `json:"kind" enum:"dataset,grid-geometry,grid-layer" doc:"What the file feeds"`
	Path     string `json:"path" doc:"Path relative to the data dir" example:"sites/yeeap.geojson"`
	FileType string `json:"fileType" doc:"GeoJSON, Shapefile or CSV" example:"GeoJSON"`
	Exists   bool   `json:"exists" doc:"Whether the file is present"`
	Size     string `json:"size,omitempty" doc:"Human-readable file size" example:"1.2 MB"`
}

// SessionInfo describes a live explorer session.
type SessionInfo struct {
	ID       string    `json:"id" format:"uuid"`
	Created  time.Time `json:"created"`
	LastUsed time.Time `json:"lastUsed"`
}
