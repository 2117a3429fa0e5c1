package report

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v60/github"

	"github.com/cgast/uiverify/pkg/runner"
)

// maxIssueBody stays under GitHub's 65536 character limit.
const maxIssueBody = 65000

// Issue identifies a created GitHub issue.
type Issue struct {
	Number int    `json:"number"`
	URL    string `json:"html_url"`
}

// GitHubOption configures a GitHubReporter.
type GitHubOption func(*GitHubReporter) error

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise or a test server.
func WithBaseURL(raw string) GitHubOption {
	return func(g *GitHubReporter) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse github base url: %w", err)
		}
		g.client.BaseURL = u
		return nil
	}
}

// GitHubReporter opens an issue for each failed run.
type GitHubReporter struct {
	client *gh.Client
	owner  string
	name   string
	labels []string
}

// NewGitHubReporter creates a reporter for repo ("owner/name") using token.
func NewGitHubReporter(token, repo string, labels []string, opts ...GitHubOption) (*GitHubReporter, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Transport: &tokenTransport{token: token},
	}
	g := &GitHubReporter{
		client: gh.NewClient(httpClient),
		owner:  owner,
		name:   name,
		labels: labels,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Repo returns the target repository as owner/name.
func (g *GitHubReporter) Repo() string { return g.owner + "/" + g.name }

// Publish opens an issue describing r. Successful runs are not reported
// and return a zero Issue.
func (g *GitHubReporter) Publish(ctx context.Context, r runner.RunResult) (Issue, error) {
	if r.Success {
		return Issue{}, nil
	}
	title := Title(r)
	body := Markdown(r)
	if len(body) > maxIssueBody {
		body = body[:maxIssueBody] + "\n\n_(report truncated)_\n"
	}

	req := &gh.IssueRequest{
		Title: &title,
		Body:  &body,
	}
	if len(g.labels) > 0 {
		labels := append([]string(nil), g.labels...)
		req.Labels = &labels
	}

	issue, _, err := g.client.Issues.Create(ctx, g.owner, g.name, req)
	if err != nil {
		return Issue{}, fmt.Errorf("create issue in %s: %w", g.Repo(), err)
	}
	return Issue{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}, nil
}

// ParseRepo splits "owner/name".
func ParseRepo(repo string) (owner, name string, err error) {
	if repo == "" {
		return "", "", fmt.Errorf("missing repo (expected 'owner/name' format)")
	}
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", fmt.Errorf("invalid repo format %q (expected 'owner/name')", repo)
	}
	return parts[0], parts[1], nil
}

// tokenTransport adds Bearer token auth to HTTP requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}
