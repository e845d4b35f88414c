package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

const opGallery = "gallery"

// GetUserGallery lists a user's sessions. Identical concurrent calls share a
// single backend request; every call that is not overlapping another one
// goes to the backend, nothing is cached.
func (c *Client) GetUserGallery(ctx context.Context, userID string, limit, offset int) ([]models.GalleryItem, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a client user id is required")
	}
	if limit <= 0 {
		limit = DefaultGalleryLimit
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("%s|%d|%d", userID, limit, offset)
	ch := c.gallery.DoChan(key, func() (interface{}, error) {
		// Detached from the first caller's cancellation so one impatient
		// caller cannot fail the others sharing this request.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout)
		defer cancel()
		return c.fetchGallery(fetchCtx, userID, limit, offset)
	})

	select {
	case <-ctx.Done():
		return nil, classifyTransport(ctx.Err(), false)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]models.GalleryItem)
		items := make([]models.GalleryItem, len(shared))
		copy(items, shared)
		return items, nil
	}
}

func (c *Client) fetchGallery(ctx context.Context, userID string, limit, offset int) ([]models.GalleryItem, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	endpoint := c.urls.Base() + "/gallery/" + url.PathEscape(userID) + "?" + q.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to build gallery request")
	}
	resp, err := c.do(opGallery, req, false)
	if err != nil {
		return nil, err
	}
	items, err := decodeJSON[[]models.GalleryItem](resp, opGallery)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.GalleryItem{}
	}
	for i := range items {
		if err := validation.ValidateStruct(&items[i]); err != nil {
			return nil, malformed(opGallery, fmt.Errorf("item %d: %w", i, err))
		}
		c.completeItem(&items[i])
	}
	return items, nil
}

// completeItem fills result links the backend left out with derived ones.
func (c *Client) completeItem(item *models.GalleryItem) {
	files := c.urls.Complete(item.SessionID, models.SessionFiles{
		PreviewURL:  item.ThumbnailURL,
		MapURL:      item.MapURL,
		ChartURL:    item.ChartURL,
		DownloadURL: item.DownloadURL,
	})
	item.ThumbnailURL = files.PreviewURL
	item.MapURL = files.MapURL
	item.ChartURL = files.ChartURL
	item.DownloadURL = files.DownloadURL
}
