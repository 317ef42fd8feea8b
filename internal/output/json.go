package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chenyanfei-m/iconfont-updater/internal/manifest"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// JSONOutput represents the complete JSON output structure.
type JSONOutput struct {
	GeneratedAt string     `json:"generatedAt"`
	Config      ConfigInfo `json:"config"`
	Selected    string     `json:"selected,omitempty"`
	Projects    []Project  `json:"projects"`
}

// ConfigInfo holds the effective configuration.
type ConfigInfo struct {
	Output   string      `json:"output"`
	Includes []string    `json:"includes"`
	Flatten  bool        `json:"flatten"`
	Mirror   *MirrorInfo `json:"mirror,omitempty"`
}

// MirrorInfo describes the configured bundle mirror.
type MirrorInfo struct {
	Bucket   string `json:"bucket"`
	Prefix   string `json:"prefix"`
	Endpoint string `json:"endpoint,omitempty"`
}

// Project is one catalog entry.
type Project struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	Selected  bool            `json:"selected"`
	Mirrored  *MirroredBundle `json:"mirrored,omitempty"`
}

// MirroredBundle is the latest mirrored bundle of a project.
type MirroredBundle struct {
	Key        string `json:"key"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploadedAt"`
}

// PrintJSON prints the catalog and configuration as JSON to stdout.
func PrintJSON(projects []types.ProjectReference, selected string, cfg *types.UserConfig, mirrored *manifest.Manifest) error {
	out := JSONOutput{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Config:      buildConfigInfo(cfg),
		Selected:    selected,
		Projects:    buildProjects(projects, selected, mirrored),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func buildConfigInfo(cfg *types.UserConfig) ConfigInfo {
	info := ConfigInfo{
		Output:   cfg.Output,
		Includes: cfg.Includes,
		Flatten:  cfg.Flatten,
	}
	if info.Includes == nil {
		info.Includes = []string{}
	}
	if cfg.Mirror.Enabled() {
		info.Mirror = &MirrorInfo{
			Bucket:   cfg.Mirror.Bucket,
			Prefix:   cfg.Mirror.Prefix,
			Endpoint: cfg.Mirror.Endpoint,
		}
	}
	return info
}

func buildProjects(projects []types.ProjectReference, selected string, mirrored *manifest.Manifest) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		proj := Project{
			ID:       p.ID,
			Name:     p.Name,
			Selected: p.ID == selected,
		}
		if !p.UpdatedAt.IsZero() {
			proj.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
		}
		if mirrored != nil {
			if e, ok := mirrored.Projects[p.ID]; ok {
				proj.Mirrored = &MirroredBundle{
					Key:        e.Key,
					Size:       e.Size,
					UploadedAt: e.UploadedAt.UTC().Format(time.RFC3339),
				}
			}
		}
		out = append(out, proj)
	}
	return out
}
