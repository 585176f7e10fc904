package remote

import (
	"context"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
)

type (
	BookItem struct {
		ID                   string   `json:"id"`
		Image                *string  `json:"image"`
		Popularity           *int     `json:"popularity"`
		PublishedChapterDate *int64   `json:"publishedChapterDate"`
		Score                *float64 `json:"score"`
		Title                *string  `json:"title"`
	}

	Country struct {
		Country string `json:"country"`
		Region  string `json:"region"`
	}

	// CountryResponse maps ISO codes to countries.
	CountryResponse struct {
		Data map[string]Country `json:"data"`
	}

	IPInfo struct {
		Country string `json:"country"`
	}
)

type BooksSource struct {
	client *Client
	url    string
}

func NewBooksSource(c *Client, cfg *config.Config) *BooksSource {
	return &BooksSource{client: c, url: cfg.BooksURL}
}

func (s *BooksSource) GetBooks(ctx context.Context) ([]BookItem, error) {
	books := make([]BookItem, 0)
	if err := s.client.getJSON(ctx, s.url, &books); err != nil {
		return nil, err
	}
	return books, nil
}

type RegistrationSource struct {
	client       *Client
	countriesURL string
	ipInfoURL    string
}

func NewRegistrationSource(c *Client, cfg *config.Config) *RegistrationSource {
	return &RegistrationSource{
		client:       c,
		countriesURL: cfg.CountriesURL,
		ipInfoURL:    cfg.IPInfoURL,
	}
}

func (s *RegistrationSource) GetCountries(ctx context.Context) (*CountryResponse, error) {
	resp := CountryResponse{}
	if err := s.client.getJSON(ctx, s.countriesURL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *RegistrationSource) GetIPInfo(ctx context.Context) (*IPInfo, error) {
	info := IPInfo{}
	if err := s.client.getJSON(ctx, s.ipInfoURL, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
