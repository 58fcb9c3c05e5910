// Package httpcatalog implements catalog.Lookup against the storefront
// catalog HTTP API. The cart subsystem owns no endpoint of its own; this is
// purely a consumer of the product-lookup collaborator.
package httpcatalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-cart/internal/domain/catalog"
)

var _ catalog.Lookup = (*Client)(nil)

// Client fetches product records by slug over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for the catalog at baseURL using the given
// transport. A nil transport falls back to http.DefaultTransport. No timeout
// is imposed here; callers control deadlines through the request context.
func NewClient(baseURL string, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Transport: transport},
	}
}

// BySlug fetches the product record for slug. A 404 response or a null
// product field maps to catalog.ErrNotFound; any other non-200 response or
// network failure is returned as a plain error for the validator to classify
// as transport.
func (c *Client) BySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	u := c.base + "/api/products/" + url.PathEscape(slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch product")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, catalog.ErrNotFound
	default:
		return nil, errors.Errorf("catalog responded %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	p, err := decodeProductResponse(body, slug)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// decodeProductResponse parses {"product": {...}|null}. Only the price,
// quantity, and productId fields are consumed; everything else is skipped.
func decodeProductResponse(body []byte, slug string) (*catalog.Product, error) {
	var p *catalog.Product
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "product" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		p = &catalog.Product{Slug: slug}
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "productId":
				v, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "productId")
				}
				p.ProductID = v
			case "price":
				// Prices arrive either as a JSON number or as a
				// decimal string; both forms are accepted.
				var raw string
				switch d.Next() {
				case jx.Null:
					return d.Null()
				case jx.String:
					v, err := d.Str()
					if err != nil {
						return errors.Wrap(err, "price")
					}
					raw = v
				default:
					n, err := d.Num()
					if err != nil {
						return errors.Wrap(err, "price")
					}
					raw = n.String()
				}
				price, err := decimal.NewFromString(raw)
				if err != nil {
					return errors.Wrap(err, "price")
				}
				p.Price = price
			case "quantity":
				v, err := d.Int()
				if err != nil {
					return errors.Wrap(err, "quantity")
				}
				p.Available = v
			default:
				return d.Skip()
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode product response")
	}
	if p == nil {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}
