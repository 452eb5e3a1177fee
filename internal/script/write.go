package script

import (
	"errors"
	"io/fs"
	"os"

	"slimsweep/internal/errs"
)

// Artifact is one rendered script and where it is written.
type Artifact struct {
	Kind    string
	Path    string
	Content string
}

const (
	KindResource = "resource"
	KindDriver   = "driver"
)

// Render renders the artifacts mode selects without touching the disk.
func Render(c Config, mode Mode) []Artifact {
	var out []Artifact
	if mode != DriverOnly {
		out = append(out, Artifact{Kind: KindResource, Path: c.ResourcePath(), Content: RenderResourceScript(c)})
	}
	if mode != ResourceOnly {
		out = append(out, Artifact{Kind: KindDriver, Path: c.DriverPath(), Content: RenderDriverScript(c)})
	}
	return out
}

// Write renders and writes the selected artifacts. Without force, an
// artifact path that already exists fails the call before anything is
// written.
func Write(c Config, mode Mode, force bool) ([]Artifact, error) {
	artifacts := Render(c, mode)
	if mode == Both {
		if err := CheckConsistency(artifacts[0].Content, artifacts[1].Content); err != nil {
			return nil, err
		}
	}
	if !force {
		for _, a := range artifacts {
			if _, err := os.Lstat(a.Path); err == nil {
				return nil, &errs.FileAccessError{Path: a.Path, Op: "create", Err: fs.ErrExist}
			}
		}
	}
	for _, a := range artifacts {
		if err := os.WriteFile(a.Path, []byte(a.Content), 0o644); err != nil {
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) {
				err = pathErr.Err
			}
			return nil, &errs.FileAccessError{Path: a.Path, Op: "write", Err: err}
		}
		logInfo("wrote " + a.Kind + " script " + a.Path)
	}
	return artifacts, nil
}
