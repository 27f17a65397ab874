package tools

import (
	"context"
	"fmt"
	"strings"
)

// DriveSearchTool looks up documents in the user's drive. Read-only.
type DriveSearchTool struct {
	drive DriveAPI
}

// NewDriveSearchTool creates the drive_search tool.
func NewDriveSearchTool(drive DriveAPI) *DriveSearchTool {
	return &DriveSearchTool{drive: drive}
}

func (t *DriveSearchTool) Name() string { return "drive_search" }

func (t *DriveSearchTool) Description() string {
	return "Search the user's document store by file name."
}

func (t *DriveSearchTool) Tier() int { return TierReadOnly }

func (t *DriveSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of files to return",
			},
		},
		"required": []string{"query"},
	}
}

func (t *DriveSearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query := GetString(params, "query", "")
	limit := GetInt(params, "limit", 10)

	files, err := t.drive.Search(ctx, query, limit)
	if err != nil {
		return "", fmt.Errorf("drive search: %w", err)
	}
	if len(files) == 0 {
		return fmt.Sprintf("No files matching %q.", query), nil
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return strings.Join(names, "\n"), nil
}
