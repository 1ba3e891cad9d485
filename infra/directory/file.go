// Package directory loads the technician roster from disk.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	core "github.com/kilianp07/roadside/core/directory"
	"github.com/kilianp07/roadside/core/factory"
	"github.com/kilianp07/roadside/core/model"
)

// roster is the on-disk layout.
type roster struct {
	Technicians []model.Technician `yaml:"technicians" json:"technicians"`
}

// File reads a YAML or JSON roster on every Load. Wrap it in
// directory.Cached to avoid rereading.
type File struct {
	path string
}

// NewFile returns a File directory for path. The file is not read until Load.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("directory file path is required")
	}
	return &File{path: path}, nil
}

func (f *File) Load(ctx context.Context) ([]model.Technician, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var r roster
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".json":
		err = json.Unmarshal(data, &r)
	default:
		err = yaml.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	seen := make(map[string]struct{}, len(r.Technicians))
	out := make([]model.Technician, 0, len(r.Technicians))
	for _, t := range r.Technicians {
		if t.ID == "" {
			return nil, fmt.Errorf("%s: technician without id", f.path)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate technician %q", f.path, t.ID)
		}
		if t.Location != nil && !t.Location.Valid() {
			return nil, fmt.Errorf("%s: technician %q has invalid location", f.path, t.ID)
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func init() {
	_ = core.Register("file", func(conf map[string]any) (core.Directory, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFile(c.Path)
	})
}
