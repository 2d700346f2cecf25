package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/errors"
	"github.com/roomlens/roomlens-go/internal/httpclient"
	"github.com/roomlens/roomlens-go/internal/logging"
)

// Client fetches the category taxonomy from the recommendation backend.
type Client struct {
	http     *httpclient.Client
	endpoint string
	log      *slog.Logger
}

// NewClient builds a taxonomy client for the configured endpoint.
func NewClient(settings conf.TaxonomySettings) *Client {
	c := &Client{
		http:     httpclient.New(&httpclient.Config{DefaultTimeout: settings.Timeout}),
		endpoint: settings.Endpoint,
		log:      logging.ForService("taxonomy"),
	}
	if c.log == nil {
		c.log = slog.Default().With("service", "taxonomy")
	}
	return c
}

// FetchCatalog downloads the category groups and builds the lookup catalog.
func (c *Client) FetchCatalog(ctx context.Context) (*Catalog, error) {
	if c.endpoint == "" {
		return nil, errors.Newf("no taxonomy endpoint configured").
			Component("taxonomy").
			Category(errors.CategoryConfiguration).
			Build()
	}

	var groups []Group
	if err := c.http.GetJSON(ctx, c.endpoint, &groups); err != nil {
		return nil, errors.New(fmt.Errorf("taxonomy fetch failed: %w", err)).
			Component("taxonomy").
			Category(errors.CategoryTaxonomy).
			Context("endpoint", c.endpoint).
			Build()
	}
	if len(groups) == 0 {
		return nil, errors.Newf("taxonomy endpoint returned no category groups").
			Component("taxonomy").
			Category(errors.CategoryTaxonomy).
			Context("endpoint", c.endpoint).
			Build()
	}

	c.log.Debug("taxonomy loaded", "groups", len(groups))
	return NewCatalog(groups), nil
}
