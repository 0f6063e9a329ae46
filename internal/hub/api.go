package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kigichang/mospeada/internal/logger"
)

const defaultEndpoint = "https://huggingface.co"

// APIRepo downloads files from a model hub on demand and keeps them in a
// local cache laid out like the huggingface_hub cache:
//
//	<cache>/models--<org>--<name>/snapshots/<revision>/<file>
//
// A cached file is never re-downloaded.
type APIRepo struct {
	modelID  string
	revision string
	cacheDir string
	token    string
	endpoint string
	client   *http.Client
	log      logger.Logger
}

type Option func(*APIRepo)

func WithRevision(rev string) Option { return func(r *APIRepo) { r.revision = rev } }

func WithCacheDir(dir string) Option { return func(r *APIRepo) { r.cacheDir = dir } }

func WithToken(token string) Option { return func(r *APIRepo) { r.token = token } }

func WithEndpoint(endpoint string) Option {
	return func(r *APIRepo) { r.endpoint = strings.TrimRight(endpoint, "/") }
}

func WithClient(c *http.Client) Option { return func(r *APIRepo) { r.client = c } }

func WithLogger(l logger.Logger) Option { return func(r *APIRepo) { r.log = l } }

// FromPretrained opens a remote model repo. Nothing is fetched until Get
// is called.
func FromPretrained(modelID string, opts ...Option) (*APIRepo, error) {
	if modelID == "" {
		return nil, fmt.Errorf("hub: empty model id")
	}
	r := &APIRepo{
		modelID:  modelID,
		revision: "main",
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Minute},
		log:      logger.Default(),
	}
	if tok := os.Getenv("HF_TOKEN"); tok != "" {
		r.token = tok
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheDir == "" {
		dir, err := defaultCacheDir()
		if err != nil {
			return nil, fmt.Errorf("hub: resolve cache dir: %w", err)
		}
		r.cacheDir = dir
	}
	return r, nil
}

func (r *APIRepo) ModelID() string { return r.modelID }

// SnapshotDir returns the local directory the repo's files are cached in.
func (r *APIRepo) SnapshotDir() string {
	folder := "models--" + strings.ReplaceAll(r.modelID, "/", "--")
	return filepath.Join(r.cacheDir, folder, "snapshots", r.revision)
}

func (r *APIRepo) Get(ctx context.Context, filename string) (string, error) {
	local := filepath.Join(r.SnapshotDir(), filename)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}
	if err := r.download(ctx, filename, local); err != nil {
		return "", &FetchError{ModelID: r.modelID, File: filename, Err: err}
	}
	return local, nil
}

func (r *APIRepo) fileURL(filename string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s",
		r.endpoint, r.modelID, url.PathEscape(r.revision), filename)
}

// download fetches one file to a temp file in the snapshot dir and renames
// it into place, so a failed transfer never leaves a partial file behind.
func (r *APIRepo) download(ctx context.Context, filename, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.fileURL(filename), nil)
	if err != nil {
		return err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	r.log.Debug("downloading", "model", r.modelID, "file", filename)
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func defaultCacheDir() (string, error) {
	if home := os.Getenv("HF_HOME"); home != "" {
		return filepath.Join(home, "hub"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "huggingface", "hub"), nil
}
