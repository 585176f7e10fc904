package repository

import (
	"context"

	"go.uber.org/fx"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/remote"
)

var Module = fx.Provide(
	NewRetryPolicy,
	NewDashboardRepo,
	NewRegistrationRepo,
)

type (
	BooksFetcher interface {
		GetBooks(ctx context.Context) ([]remote.BookItem, error)
	}

	RegistrationFetcher interface {
		GetCountries(ctx context.Context) (*remote.CountryResponse, error)
		GetIPInfo(ctx context.Context) (*remote.IPInfo, error)
	}
)

func NewRetryPolicy(cfg *config.Config) network.RetryPolicy {
	return network.RetryPolicy{
		MaxRetries:     cfg.RetryMax,
		InitialBackoff: cfg.RetryBackoff,
	}
}

type DashboardRepo struct {
	source BooksFetcher
	policy network.RetryPolicy
}

func NewDashboardRepo(source *remote.BooksSource, policy network.RetryPolicy) *DashboardRepo {
	return newDashboardRepo(source, policy)
}

func newDashboardRepo(source BooksFetcher, policy network.RetryPolicy) *DashboardRepo {
	return &DashboardRepo{source: source, policy: policy}
}

func (r *DashboardRepo) BooksInfo(ctx context.Context, opts ...network.StreamOption) <-chan network.Response[[]remote.BookItem] {
	return network.Stream(ctx, r.policy, r.source.GetBooks, opts...)
}

type RegistrationRepo struct {
	source RegistrationFetcher
	policy network.RetryPolicy
}

func NewRegistrationRepo(source *remote.RegistrationSource, policy network.RetryPolicy) *RegistrationRepo {
	return newRegistrationRepo(source, policy)
}

func newRegistrationRepo(source RegistrationFetcher, policy network.RetryPolicy) *RegistrationRepo {
	return &RegistrationRepo{source: source, policy: policy}
}

func (r *RegistrationRepo) CountryList(ctx context.Context) <-chan network.Response[*remote.CountryResponse] {
	return network.Stream(ctx, r.policy, r.source.GetCountries)
}

func (r *RegistrationRepo) IPInfo(ctx context.Context) <-chan network.Response[*remote.IPInfo] {
	return network.Stream(ctx, r.policy, r.source.GetIPInfo)
}
