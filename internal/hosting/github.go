// Package hosting lists remote repositories from the hosting API.
package hosting

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v32/github"
	"golang.org/x/oauth2"

	"github.com/skaphos/reposync/internal/model"
)

// Lister returns the repositories to synchronize for an owner.
// Pagination is handled transparently; callers see a flat list.
type Lister interface {
	List(ctx context.Context, owner string) ([]model.Repo, error)
}

// GitHubLister lists repositories through the GitHub REST API.
type GitHubLister struct {
	client *github.Client
	token  string
}

// NewGitHubLister builds a lister. An empty token yields an
// unauthenticated client that only sees public repositories.
func NewGitHubLister(ctx context.Context, token string) *GitHubLister {
	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}
	return &GitHubLister{client: client, token: token}
}

// List fetches every repository page for owner. When the token's
// authenticated login matches owner, the affiliated /user/repos
// endpoint is used so private repositories are included.
func (g *GitHubLister) List(ctx context.Context, owner string) ([]model.Repo, error) {
	user := owner
	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if g.token != "" && g.authenticatedLoginMatches(ctx, owner) {
		user = ""
		opts.Affiliation = "owner,collaborator,organization_member"
	}

	var repos []model.Repo
	for {
		page, resp, err := g.client.Repositories.List(ctx, user, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories for %q: %w", owner, err)
		}
		for _, r := range page {
			repos = append(repos, model.Repo{
				Name:          r.GetName(),
				FullName:      r.GetFullName(),
				CloneURLHTTPS: r.GetCloneURL(),
				CloneURLSSH:   r.GetSSHURL(),
				DefaultBranch: r.GetDefaultBranch(),
				Private:       r.GetPrivate(),
				Archived:      r.GetArchived(),
				Fork:          r.GetFork(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return repos, nil
}

func (g *GitHubLister) authenticatedLoginMatches(ctx context.Context, owner string) bool {
	me, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		return false
	}
	return strings.EqualFold(me.GetLogin(), owner)
}
