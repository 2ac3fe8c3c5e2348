package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

type Region struct {
	Name      string   `json:"name"`
	Districts []string `json:"districts"`
}

type BlogPost struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"publishedAt"`
}

type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"startsAt"`
}

type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type UserStats struct {
	Total       int `json:"total"`
	NewThisWeek int `json:"newThisWeek"`
}

type ListingStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

type PaymentStats struct {
	Total     int             `json:"total"`
	Completed int             `json:"completed"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func (c *Client) Regions(ctx context.Context) ([]Region, error) {
	var regions []Region
	if err := c.get(ctx, "/api/regions", nil, Credentials{}, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

func (c *Client) Favorites(ctx context.Context, creds Credentials) ([]string, error) {
	var ids []string
	if err := c.get(ctx, "/api/favorites", nil, creds, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) AddFavorite(ctx context.Context, listingID string, creds Credentials) error {
	return c.send(ctx, http.MethodPost, "/api/favorites/"+url.PathEscape(listingID), creds, nil, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, listingID string, creds Credentials) error {
	return c.send(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(listingID), creds, nil, nil)
}

func (c *Client) UserStats(ctx context.Context, creds Credentials) (*UserStats, error) {
	var stats UserStats
	if err := c.get(ctx, "/api/admin/stats/users", nil, creds, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) ListingStats(ctx context.Context, creds Credentials) (*ListingStats, error) {
	var stats ListingStats
	if err := c.get(ctx, "/api/admin/stats/listings", nil, creds, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) PaymentStats(ctx context.Context, creds Credentials) (*PaymentStats, error) {
	var stats PaymentStats
	if err := c.get(ctx, "/api/admin/stats/payments", nil, creds, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) BlogPosts(ctx context.Context) ([]BlogPost, error) {
	var posts []BlogPost
	if err := c.get(ctx, "/api/blog", nil, Credentials{}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) BlogPost(ctx context.Context, slug string) (*BlogPost, error) {
	var post BlogPost
	if err := c.get(ctx, "/api/blog/"+url.PathEscape(slug), nil, Credentials{}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) Events(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := c.get(ctx, "/api/events", nil, Credentials{}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/api/products", nil, Credentials{}, &products); err != nil {
		return nil, err
	}
	return products, nil
}
