package hub

import (
	"context"
	"os"
	"path/filepath"
)

// LocalRepo serves files from a directory on disk, typically an already
// populated hub snapshot.
type LocalRepo struct {
	modelID string
	dir     string
}

func NewLocalRepo(modelID, dir string) *LocalRepo {
	return &LocalRepo{modelID: modelID, dir: dir}
}

func (r *LocalRepo) ModelID() string { return r.modelID }

func (r *LocalRepo) Dir() string { return r.dir }

func (r *LocalRepo) Get(_ context.Context, filename string) (string, error) {
	p := filepath.Join(r.dir, filename)
	if _, err := os.Stat(p); err != nil {
		return "", &FetchError{ModelID: r.modelID, File: filename, Err: err}
	}
	return p, nil
}
