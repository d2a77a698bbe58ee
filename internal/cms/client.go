// Package cms talks to the Cosmic bucket that authors templates, story
// prompts and site settings, and to its AI text endpoint.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"madlibs-stories/internal/common/config"
	apphttp "madlibs-stories/internal/common/http"
	"madlibs-stories/internal/common/logger"
)

// Object types in the bucket.
const (
	TypeTemplates    = "mad-libs-templates"
	TypeStoryPrompts = "story-prompts"
	TypeSiteSettings = "site-settings"
)

var objectProps = []string{"id", "title", "slug", "metadata"}

// Client is a minimal Cosmic v3 REST client.
type Client struct {
	http     *apphttp.Client
	baseURL  string
	bucket   string
	readKey  string
	writeKey string
	logger   logger.Logger
}

func NewClient(cfg config.CMSConfig, log logger.Logger) *Client {
	return &Client{
		http:     apphttp.NewClient(config.GetDuration(cfg.Timeout)),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		bucket:   cfg.BucketSlug,
		readKey:  cfg.ReadKey,
		writeKey: cfg.WriteKey,
		logger:   log.WithFields(map[string]interface{}{"component": "cms", "bucket": cfg.BucketSlug}),
	}
}

type objectsResponse struct {
	Objects []json.RawMessage `json:"objects"`
	Total   int               `json:"total"`
}

// findObjects runs an object query. Cosmic answers 404 when nothing matches;
// that is returned as an empty slice.
func (c *Client) findObjects(ctx context.Context, query map[string]interface{}, limit int, depth int) ([]json.RawMessage, error) {
	q, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode cosmic query: %w", err)
	}

	params := url.Values{}
	params.Set("query", string(q))
	params.Set("read_key", c.readKey)
	params.Set("props", strings.Join(objectProps, ","))
	if depth > 0 {
		params.Set("depth", fmt.Sprint(depth))
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}

	endpoint := fmt.Sprintf("%s/buckets/%s/objects?%s", c.baseURL, url.PathEscape(c.bucket), params.Encode())

	var resp objectsResponse
	err = c.http.DoJSON(ctx, http.MethodGet, endpoint, nil, nil, &resp)
	if err != nil {
		var statusErr *apphttp.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("cosmic query %v: %w", query["type"], err)
	}
	return resp.Objects, nil
}

// findOne returns the first object matching query, or nil.
func (c *Client) findOne(ctx context.Context, query map[string]interface{}, depth int) (json.RawMessage, error) {
	objects, err := c.findObjects(ctx, query, 1, depth)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, nil
	}
	return objects[0], nil
}
