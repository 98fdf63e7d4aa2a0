package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

// maxReadBytes caps how much of a file is returned as an observation.
const maxReadBytes = 64 << 10

// resolvePath resolves path against workspace (if relative) and refuses
// anything that escapes the workspace after symlink resolution.
func resolvePath(path, workspace string) (string, error) {
	root, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}

	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		resolved = filepath.Clean(p)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the workspace", path)
	}
	return resolved, nil
}

// ReadFileTool reads a file inside the workspace and returns its contents.
type ReadFileTool struct {
	workspace string
}

func NewReadFileTool(workspace string) *ReadFileTool {
	return &ReadFileTool{workspace: workspace}
}

func (t *ReadFileTool) Name() string        { return ToolReadFile }
func (t *ReadFileTool) Description() string { return "Read the contents of a file in the workspace." }
func (t *ReadFileTool) Schema() schema.ParameterSchema {
	return schema.ParameterSchema{
		Required: []string{"path"},
		Fields: map[string]schema.Field{
			"path": {Kind: schema.KindString, Description: "The file path to read, relative to the workspace"},
		},
	}
}

func (t *ReadFileTool) Execute(_ context.Context, params map[string]any) (string, error) {
	path, _ := params["path"].(string)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	fp, err := resolvePath(path, t.workspace)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fp)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a file: %s", path)
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxReadBytes {
		return string(data[:maxReadBytes]) + "\n... (truncated)", nil
	}
	return string(data), nil
}
