package output

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/chenyanfei-m/iconfont-updater/internal/manifest"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// PrintProjects prints the account's projects as an ASCII table, marking
// the selected one. The mirror column is shown when mirrored is non-nil.
func PrintProjects(projects []types.ProjectReference, selected string, mirrored *manifest.Manifest) {
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return
	}

	fmt.Println("Projects")
	table := tablewriter.NewWriter(os.Stdout)
	if mirrored != nil {
		table.Header("", "ID", "Name", "Updated", "Mirror")
	} else {
		table.Header("", "ID", "Name", "Updated")
	}

	for _, p := range projects {
		marker := ""
		if p.ID == selected {
			marker = "*"
		}
		row := []any{marker, p.ID, p.Name, FormatTime(p.UpdatedAt)}
		if mirrored != nil {
			row = append(row, mirrorStatus(p, mirrored))
		}
		_ = table.Append(row...)
	}

	_ = table.Render()
}

// mirrorStatus compares the project's update time with its mirrored bundle.
func mirrorStatus(p types.ProjectReference, m *manifest.Manifest) string {
	entry, ok := m.Projects[p.ID]
	if !ok {
		return "-"
	}
	if p.UpdatedAt.After(entry.UpdatedAt) {
		return "Outdated"
	}
	return "OK"
}
