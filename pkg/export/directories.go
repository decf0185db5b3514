package export

import (
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// Directories is the output layout of one export.
type Directories struct {
	Root  string
	Nodes string
	Edges string
}

// CreateDirectories creates <outputDir>/<tag>/{nodes,edges}. An empty tag
// uses the current UTC time.
func CreateDirectories(outputDir, tag string) (Directories, error) {
	if tag == "" {
		tag = time.Now().UTC().Format("20060102T150405Z")
	}
	root := filepath.Join(outputDir, tag)
	dirs := Directories{
		Root:  root,
		Nodes: filepath.Join(root, "nodes"),
		Edges: filepath.Join(root, "edges"),
	}
	for _, d := range []string{dirs.Nodes, dirs.Edges} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Directories{}, errors.Wrap(errors.ErrCodeInternal, err, "create %s", d)
		}
	}
	return dirs, nil
}
