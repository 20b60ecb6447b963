package memorykeep

import (
	"context"
	"os"
	"path/filepath"
)

// Directive documents read by FileDirectives when Files is empty.
const (
	CoreMemoryFile = "core_memory.txt"
	DirectivesFile = "directives.txt"
)

// Directives supplies the static system documents that open every prompt.
type Directives interface {
	Load(ctx context.Context) []string
}

// StaticDirectives is a fixed set of directive documents.
type StaticDirectives []string

// Load returns a copy of the documents.
func (d StaticDirectives) Load(ctx context.Context) []string {
	return append([]string(nil), d...)
}

// FileDirectives reads directive documents from a directory on every Load.
// An unreadable file is replaced by the text "[Error loading <name>]".
type FileDirectives struct {
	Dir    string
	Files  []string
	Logger Logger
}

// Load reads every file in order.
func (d FileDirectives) Load(ctx context.Context) []string {
	files := d.Files
	if len(files) == 0 {
		files = []string{CoreMemoryFile, DirectivesFile}
	}

	out := make([]string, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(d.Dir, name))
		if err != nil {
			if d.Logger != nil {
				d.Logger.Warn("failed to read directive", "file", name, "error", err)
			}
			out = append(out, "[Error loading "+name+"]")
			continue
		}
		out = append(out, string(data))
	}
	return out
}
