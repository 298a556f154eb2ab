package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"

	"ghbridge/internal/domain/models"
)

// IssueBody is attached to every issue the bot creates.
const IssueBody = "Created via Telegram bot"

// Issues manages issues of one repository with the bot's own token.
type Issues struct {
	client *github.Client
	owner  string
	repo   string
}

// NewIssues builds a client for repo given as "owner/name".
func NewIssues(token, repo string, timeout time.Duration, opts ...Option) (*Issues, error) {
	const op = "github.NewIssues"

	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%s: repository must be owner/name, got %q", op, repo)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	baseURL, err := apiBaseURL(o.apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Issues{
		client: newClient(&http.Client{Timeout: timeout}, baseURL, token),
		owner:  owner,
		repo:   name,
	}, nil
}

// FullName returns owner/name.
func (i *Issues) FullName() string {
	return i.owner + "/" + i.repo
}

// CreateIssue opens an issue titled title.
func (i *Issues) CreateIssue(ctx context.Context, title string) (models.Issue, error) {
	const op = "github.CreateIssue"

	issue, _, err := i.client.Issues.Create(ctx, i.owner, i.repo, &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(IssueBody),
	})
	if err != nil {
		return models.Issue{}, fmt.Errorf("%s: %w", op, err)
	}
	return toIssue(issue), nil
}

// OpenIssues lists every open issue, skipping pull requests.
func (i *Issues) OpenIssues(ctx context.Context) ([]models.Issue, error) {
	const op = "github.OpenIssues"

	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var result []models.Issue
	for {
		issues, resp, err := i.client.Issues.ListByRepo(ctx, i.owner, i.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			result = append(result, toIssue(issue))
		}
		if resp.NextPage == 0 {
			return result, nil
		}
		opts.ListOptions.Page = resp.NextPage
	}
}

// CloseIssue sets the issue state to closed.
func (i *Issues) CloseIssue(ctx context.Context, number int) error {
	const op = "github.CloseIssue"

	_, _, err := i.client.Issues.Edit(ctx, i.owner, i.repo, number, &github.IssueRequest{
		State: github.Ptr("closed"),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func toIssue(issue *github.Issue) models.Issue {
	return models.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		State:  issue.GetState(),
	}
}
