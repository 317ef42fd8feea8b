// Package manifest records which bundles have been mirrored to object
// storage. One entry is kept per project: the remote update time of the
// bundle, its checksum and the object key it was stored under, so an
// unchanged bundle is not uploaded twice.
package manifest

import "time"

// Version is the manifest format this package reads and writes.
const Version = 1

// Manifest maps project ids to their latest mirrored bundle.
type Manifest struct {
	Version  int              `json:"version"`
	Projects map[string]Entry `json:"projects"`
}

// Entry records one mirrored bundle.
type Entry struct {
	Name       string    `json:"name"`
	UpdatedAt  time.Time `json:"updatedAt"` // Remote project update time (UTC)
	SHA256     string    `json:"sha256"`
	Size       int64     `json:"size"`
	Key        string    `json:"key"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// New creates an empty manifest.
func New() *Manifest {
	return &Manifest{
		Version:  Version,
		Projects: make(map[string]Entry),
	}
}

// Current reports whether the bundle with checksum sum is already the
// mirrored one for projectID.
func (m *Manifest) Current(projectID, sum string) bool {
	e, ok := m.Projects[projectID]
	return ok && e.SHA256 == sum
}

// Record replaces the entry for projectID.
func (m *Manifest) Record(projectID string, e Entry) {
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.UploadedAt = e.UploadedAt.UTC()
	m.Projects[projectID] = e
}

