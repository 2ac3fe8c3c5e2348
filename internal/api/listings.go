package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Listing struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Region      string          `json:"region"`
	District    string          `json:"district"`
	Images      []string        `json:"images"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ListingPage struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
}

type ListingQuery struct {
	Category string
	Region   string
	District string
	Text     string
	Page     int
}

func (q ListingQuery) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("category", q.Category)
	set("region", q.Region)
	set("district", q.District)
	set("q", q.Text)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

type ListingDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Region      string          `json:"region"`
	District    string          `json:"district"`
}

// MediaFile is one image or video attached to a listing draft.
type MediaFile struct {
	Name    string
	Content io.Reader
}

func (c *Client) SearchListings(ctx context.Context, q ListingQuery, creds Credentials) (*ListingPage, error) {
	var page ListingPage
	if err := c.get(ctx, "/api/listings", q.values(), creds, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Listing(ctx context.Context, slug string, creds Credentials) (*Listing, error) {
	var listing Listing
	if err := c.get(ctx, "/api/listings/"+url.PathEscape(slug), nil, creds, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *Client) CreateListing(ctx context.Context, draft ListingDraft, creds Credentials) (*Listing, error) {
	var listing Listing
	if err := c.send(ctx, http.MethodPost, "/api/listings", creds, draft, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// UploadMedia sends files as one multipart request and returns the stored URLs.
func (c *Client) UploadMedia(ctx context.Context, listingID string, files []MediaFile, creds Credentials) ([]string, error) {
	if len(files) == 0 {
		return nil, errors.New("no media files to upload")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "create form part for %s", f.Name)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, errors.Wrapf(err, "copy %s", f.Name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart writer")
	}

	var urls []string
	_, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/listings/" + url.PathEscape(listingID) + "/media",
		creds:       creds,
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, &urls)
	if err != nil {
		return nil, err
	}
	return urls, nil
}
