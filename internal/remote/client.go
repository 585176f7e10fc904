package remote

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
)

var Module = fx.Provide(
	NewClient,
	NewBooksSource,
	NewRegistrationSource,
)

// Client is the shared resty client for every upstream the app talks to.
type Client struct {
	http    *resty.Client
	limiter *hostLimiter
	logger  *zap.SugaredLogger
}

func NewClient(cfg *config.Config, l *zap.SugaredLogger) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(cfg.HTTPTimeout).
			SetHeader("Accept", "application/json"),
		limiter: newHostLimiter(cfg.RemoteRPS, cfg.RemoteBurst),
		logger:  l,
	}
}

// getJSON fetches rawURL and decodes the body into out. A non-2xx answer
// comes back as *network.HTTPError so it can be mapped to a failure later.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "parse url")
	}
	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return errors.Wrap(err, "rate limit")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return errors.Wrapf(err, "get %s", u.Host)
	}
	if !resp.IsSuccess() {
		c.logger.Warnw("Upstream answered with an error.", "host", u.Host, "status", resp.StatusCode())
		return &network.HTTPError{Status: resp.StatusCode(), Body: resp.Body()}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "decode %s", u.Host)
	}
	return nil
}
