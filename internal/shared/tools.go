package shared

import (
	"fmt"
	"os/exec"
)

// Tool describes an external executable the pipeline can call.
type Tool struct {
	Name     string
	Path     string // Configured name or path, resolved with [exec.LookPath]
	Required bool
}

// ToolStatus is the result of resolving a [Tool].
type ToolStatus struct {
	Tool
	Resolved string
	Err      error
}

// Found reports whether the tool resolved to an executable.
func (s ToolStatus) Found() bool {
	return s.Err == nil && s.Resolved != ""
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// ResolveTool looks up a single tool.
func ResolveTool(t Tool) ToolStatus {
	path := t.Path
	if path == "" {
		path = t.Name
	}
	resolved, err := lookPath(path)
	if err != nil {
		return ToolStatus{Tool: t, Err: fmt.Errorf("%w: %s (%s)", ErrMissingDependency, t.Name, path)}
	}
	return ToolStatus{Tool: t, Resolved: resolved}
}

// DownloadTools lists the executables used by the download pipeline.
func DownloadTools(c DownloadConfig) []Tool {
	return []Tool{
		{Name: "ffmpeg", Path: c.FFmpegPath, Required: true},
		{Name: "yt-dlp", Path: c.YtdlpPath},
		{Name: "aria2c", Path: c.Aria2cPath},
	}
}

// CheckTools resolves every tool and returns the statuses plus the first missing required tool as an error.
func CheckTools(tools []Tool) ([]ToolStatus, error) {
	statuses := make([]ToolStatus, 0, len(tools))
	var firstErr error
	for _, t := range tools {
		s := ResolveTool(t)
		statuses = append(statuses, s)
		if !s.Found() && t.Required && firstErr == nil {
			firstErr = s.Err
		}
	}
	return statuses, firstErr
}
