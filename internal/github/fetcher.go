// Package github fetches repository content over the GitHub REST API and
// flattens it into a single corpus text for ingestion.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRepoNotFound is returned when the repository metadata lookup 404s.
var ErrRepoNotFound = errors.New("repository not found")

// textExtensions is the allow-list of file extensions included in the corpus
// file listing.
var textExtensions = []string{".md", ".txt", ".js", ".ts", ".tsx", ".jsx", ".py", ".go", ".java"}

const maxListedFiles = 50

type Fetcher struct {
	baseURL    string
	rawBaseURL string
	token      string
	client     *http.Client
}

func NewFetcher(baseURL, rawBaseURL, token string, timeout time.Duration) *Fetcher {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if rawBaseURL == "" {
		rawBaseURL = "https://raw.githubusercontent.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		rawBaseURL: strings.TrimRight(rawBaseURL, "/"),
		token:      token,
		client:     &http.Client{Timeout: timeout},
	}
}

type repoMetadata struct {
	Description   string `json:"description"`
	Language      string `json:"language"`
	DefaultBranch string `json:"default_branch"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type treeResponse struct {
	Tree []treeEntry `json:"tree"`
}

// FetchCorpus retrieves repository metadata, the README (best effort) and the
// filtered file tree, and returns them as one deterministic text blob.
// Metadata or tree failures are fatal; a missing README only omits its section.
func (f *Fetcher) FetchCorpus(ctx context.Context, owner, name string) (string, error) {
	meta, err := f.fetchMetadata(ctx, owner, name)
	if err != nil {
		return "", err
	}

	readme := f.fetchReadme(ctx, owner, name, meta.DefaultBranch)

	files, err := f.fetchFileTree(ctx, owner, name, meta.DefaultBranch)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s/%s\n", owner, name)
	description := meta.Description
	if description == "" {
		description = "No description"
	}
	fmt.Fprintf(&sb, "Description: %s\n", description)
	language := meta.Language
	if language == "" {
		language = "Unknown"
	}
	fmt.Fprintf(&sb, "Language: %s\n\n", language)

	if readme != "" {
		fmt.Fprintf(&sb, "README:\n%s\n\n", readme)
	}

	sb.WriteString("File Structure:\n")
	for _, path := range files {
		fmt.Fprintf(&sb, "- %s\n", path)
	}

	return sb.String(), nil
}

func (f *Fetcher) fetchMetadata(ctx context.Context, owner, name string) (*repoMetadata, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", f.baseURL, owner, name)
	resp, err := f.doGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrRepoNotFound, owner, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch repository info: status %d", resp.StatusCode)
	}

	var meta repoMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode repository info: %w", err)
	}
	if meta.DefaultBranch == "" {
		meta.DefaultBranch = "main"
	}
	return &meta, nil
}

// fetchReadme is best effort: any failure simply leaves the README out of the
// corpus.
func (f *Fetcher) fetchReadme(ctx context.Context, owner, name, branch string) string {
	url := fmt.Sprintf("%s/%s/%s/%s/README.md", f.rawBaseURL, owner, name, branch)
	resp, err := f.doGet(ctx, url)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(body)
}

func (f *Fetcher) fetchFileTree(ctx context.Context, owner, name, branch string) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", f.baseURL, owner, name, branch)
	resp, err := f.doGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository tree: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch repository tree: status %d", resp.StatusCode)
	}

	var tree treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to decode repository tree: %w", err)
	}

	var files []string
	for _, entry := range tree.Tree {
		if entry.Type != "blob" || !hasTextExtension(entry.Path) {
			continue
		}
		files = append(files, entry.Path)
		if len(files) == maxListedFiles {
			break
		}
	}
	return files, nil
}

func (f *Fetcher) doGet(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	return f.client.Do(req)
}

func hasTextExtension(path string) bool {
	for _, ext := range textExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
