package uploader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"cuhk-timetable/config"
	"cuhk-timetable/telemetry"

	"github.com/go-resty/resty/v2"
)

const githubAPI = "https://api.github.com"

var ErrMissingCredentials = errors.New("uploader: github token and repo must be configured")

type GitHubUploadRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type contentResponse struct {
	SHA string `json:"sha"`
}

type githubError struct {
	Message string `json:"message"`
}

// Uploader publishes exported files through the GitHub contents API.
type Uploader struct {
	client *resty.Client
	cfg    config.GitHub
}

func New(cfg config.GitHub) *Uploader {
	return newUploader(cfg, githubAPI)
}

func newUploader(cfg config.GitHub, baseURL string) *Uploader {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/vnd.github+json")
	telemetry.InstrumentResty(client, "cuhk-timetable/uploader")
	return &Uploader{client: client, cfg: cfg}
}

// Upload creates or replaces the configured repository path with the
// contents of filename. When no path is configured the file's base name is
// used.
func (u *Uploader) Upload(ctx context.Context, filename string) error {
	if u.cfg.Token == "" || u.cfg.Repo == "" {
		return ErrMissingCredentials
	}
	fileContent, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	repoPath := u.cfg.Path
	if repoPath == "" {
		repoPath = filepath.Base(filename)
	}
	endpoint := fmt.Sprintf("/repos/%s/contents/%s", u.cfg.Repo, repoPath)

	sha, err := u.currentSHA(ctx, endpoint)
	if err != nil {
		return err
	}

	message := u.cfg.Message
	if message == "" {
		message = "Update " + filepath.Base(repoPath)
	}
	body := GitHubUploadRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(fileContent),
		SHA:     sha,
		Branch:  u.cfg.Branch,
	}

	var apiErr githubError
	res, err := u.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Put(endpoint)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("error uploading to GitHub, status code: %d, response: %s", res.StatusCode(), apiErr.Message)
	}

	slog.Info("published file to github", "repo", u.cfg.Repo, "path", repoPath, "replaced", sha != "")
	return nil
}

// currentSHA returns the blob sha of an existing file, or "" when the path
// does not exist yet.
func (u *Uploader) currentSHA(ctx context.Context, endpoint string) (string, error) {
	var existing contentResponse
	req := u.client.R().
		SetContext(ctx).
		SetResult(&existing)
	if u.cfg.Branch != "" {
		req.SetQueryParam("ref", u.cfg.Branch)
	}
	res, err := req.Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("error looking up existing file: %w", err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return "", nil
	}
	if res.IsError() {
		return "", fmt.Errorf("error looking up existing file, status code: %d", res.StatusCode())
	}
	return existing.SHA, nil
}
