package usecase_test

import (
	"context"

	"github.com/m-mizutani/prospector/pkg/domain/model"
)

// githubMock is a hand-written GitHubClient mock with func fields
type githubMock struct {
	getRepository      func(ctx context.Context, owner, repo string) (*model.RepoMetadata, error)
	listContributors   func(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error)
	getCommitWindows   func(ctx context.Context, owner, repo string) (map[string]model.CommitWindows, error)
	countAuthored      func(ctx context.Context, owner, repo, username string) (int, int, error)
	listStargazers     func(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error)
	searchRepositories func(ctx context.Context, query string, limit int) ([]*model.RepoMetadata, error)
}

func (m *githubMock) GetRepository(ctx context.Context, owner, repo string) (*model.RepoMetadata, error) {
	if m.getRepository == nil {
		return &model.RepoMetadata{FullName: owner + "/" + repo}, nil
	}
	return m.getRepository(ctx, owner, repo)
}

func (m *githubMock) ListContributors(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error) {
	if m.listContributors == nil {
		return nil, nil
	}
	return m.listContributors(ctx, owner, repo, limit)
}

func (m *githubMock) GetCommitWindows(ctx context.Context, owner, repo string) (map[string]model.CommitWindows, error) {
	if m.getCommitWindows == nil {
		return map[string]model.CommitWindows{}, nil
	}
	return m.getCommitWindows(ctx, owner, repo)
}

func (m *githubMock) CountAuthored(ctx context.Context, owner, repo, username string) (int, int, error) {
	if m.countAuthored == nil {
		return 0, 0, nil
	}
	return m.countAuthored(ctx, owner, repo, username)
}

func (m *githubMock) ListStargazers(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error) {
	if m.listStargazers == nil {
		return nil, nil
	}
	return m.listStargazers(ctx, owner, repo, limit)
}

func (m *githubMock) SearchRepositories(ctx context.Context, query string, limit int) ([]*model.RepoMetadata, error) {
	if m.searchRepositories == nil {
		return nil, nil
	}
	return m.searchRepositories(ctx, query, limit)
}

// searchMock is a hand-written SearchClient mock
type searchMock struct {
	searchPerson func(ctx context.Context, q model.PersonQuery) ([]model.SearchHit, error)
}

func (m *searchMock) SearchPerson(ctx context.Context, q model.PersonQuery) ([]model.SearchHit, error) {
	if m.searchPerson == nil {
		return nil, nil
	}
	return m.searchPerson(ctx, q)
}
