package figma

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter saves generated components under Dir.
type FileWriter struct {
	Dir string
}

// Save writes Name.jsx and Name.css and returns the written paths.
func (w FileWriter) Save(c Component) ([]string, error) {
	if w.Dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var paths []string
	files := []struct{ ext, body string }{{".jsx", c.JSX}, {".css", c.CSS}}
	for _, f := range files {
		path := filepath.Join(w.Dir, c.Name+f.ext)
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
