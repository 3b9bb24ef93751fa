package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"proteinwatch/models"

	"github.com/go-resty/resty/v2"
)

// feedSkipFields are internal bookkeeping the published feed must not carry.
var feedSkipFields = map[string]bool{
	"recipe":          true,
	"cookie_locators": true,
	"warning":         true,
	"count_top10":     true,
	"count_clicked":   true,
}

// WordpressPublisher republishes the product feed: wipe all posts, then one
// post per publishable product. The content body is the product encoded in
// the $-escaped pseudo-JSON the site's shortcode renderer expects.
type WordpressPublisher struct {
	client  *resty.Client
	enabled bool
}

func NewWordpressPublisher(baseURL, user, appPassword string) *WordpressPublisher {
	enabled := baseURL != ""
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetBasicAuth(user, appPassword).
		SetTimeout(30 * time.Second)
	return &WordpressPublisher{client: client, enabled: enabled}
}

type wordpressPost struct {
	ID      int    `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Status  string `json:"status,omitempty"`
}

// PublishAll replaces the entire published feed.
func (w *WordpressPublisher) PublishAll(products []models.Product) error {
	if !w.enabled {
		log.Println("WordPress publishing not configured, skipping")
		return nil
	}

	if err := w.deleteAllPosts(); err != nil {
		return fmt.Errorf("failed to clear published feed: %v", err)
	}

	published := 0
	for i := range products {
		p := &products[i]
		if !p.Publishable() {
			continue
		}
		if err := w.createPost(p); err != nil {
			return fmt.Errorf("failed to publish %s: %v", p.Name, err)
		}
		published++
	}
	log.Printf("published %d products to WordPress", published)
	return nil
}

func (w *WordpressPublisher) deleteAllPosts() error {
	for {
		var posts []wordpressPost
		resp, err := w.client.R().
			SetQueryParam("per_page", "100").
			SetResult(&posts).
			Get("/wp-json/wp/v2/posts")
		if err != nil {
			return fmt.Errorf("failed to list posts: %v", err)
		}
		if resp.IsError() {
			return fmt.Errorf("list posts returned status %d", resp.StatusCode())
		}
		if len(posts) == 0 {
			return nil
		}
		for _, post := range posts {
			resp, err := w.client.R().
				SetQueryParam("force", "true").
				Delete(fmt.Sprintf("/wp-json/wp/v2/posts/%d", post.ID))
			if err != nil {
				return fmt.Errorf("failed to delete post %d: %v", post.ID, err)
			}
			if resp.IsError() {
				return fmt.Errorf("delete post %d returned status %d", post.ID, resp.StatusCode())
			}
		}
	}
}

func (w *WordpressPublisher) createPost(p *models.Product) error {
	resp, err := w.client.R().
		SetBody(wordpressPost{
			Title:   p.Name,
			Content: EncodeFeedProduct(p),
			Status:  "publish",
		}).
		Post("/wp-json/wp/v2/posts")
	if err != nil {
		return fmt.Errorf("failed to create post: %v", err)
	}
	if resp.IsError() {
		return fmt.Errorf("create post returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// EncodeFeedProduct serializes a product for the shortcode renderer, which
// cannot cope with double quotes inside post content: every quote becomes a
// dollar sign and field order is made deterministic.
func EncodeFeedProduct(p *models.Product) string {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Printf("failed to encode product %s for feed: %v", p.ID, err)
		return "{}"
	}
	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return "{}"
	}

	keys := make([]string, 0, len(asMap))
	for key := range asMap {
		if feedSkipFields[key] {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		value := strings.ReplaceAll(string(asMap[key]), `"`, "$")
		entries = append(entries, fmt.Sprintf("$%s$: %s", key, value))
	}
	return "{" + strings.Join(entries, ",") + "}"
}
