package article

import (
	"net/url"
	"strings"
	"time"
)

// Content types an article can carry. Video articles embed an external player
// and must reference a resolvable video URL.
const (
	ContentTypeArticle = "article"
	ContentTypeVideo   = "video"
)

// DefaultSection is the placement tag applied when a request supplies none.
const DefaultSection = "main"

// StatusPublished is the only status a stored record can hold today; drafts
// never reach the document.
const StatusPublished = "published"

// Record is the persisted unit: one published article.
type Record struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Author        string    `json:"author"`
	Excerpt       string    `json:"excerpt"`
	Body          string    `json:"body"`
	CoverImage    string    `json:"coverImage"`
	GalleryImages []string  `json:"galleryImages"`
	ContentType   string    `json:"contentType"`
	VideoURL      string    `json:"videoUrl,omitempty"`
	Sections      []string  `json:"sections"`
	CreatedAt     time.Time `json:"createdAt"`
	ViewCount     int       `json:"viewCount"`
	LikeCount     int       `json:"likeCount"`
	Status        string    `json:"status"`
}

// Document is the single shared JSON document holding every article. It is
// always read in full, mutated in memory and written back in full.
type Document struct {
	Articles    map[string]Record `json:"articlesById"`
	LastUpdated *time.Time        `json:"lastUpdatedAt"`
	TotalCount  int               `json:"totalCount"`
}

// NewDocument returns an empty document, the state assumed before the first
// ever write.
func NewDocument() *Document {
	return &Document{Articles: map[string]Record{}}
}

// YouTubeVideoID extracts the 11-character video identifier from the common
// YouTube URL shapes (watch, short link, embed, shorts).
func YouTubeVideoID(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		if len(segments) > 0 {
			id = segments[0]
		}
	case "youtube.com", "m.youtube.com", "youtube-nocookie.com":
		switch {
		case len(segments) > 0 && segments[0] == "watch":
			id = parsed.Query().Get("v")
		case len(segments) > 1 && (segments[0] == "embed" || segments[0] == "v" || segments[0] == "shorts"):
			id = segments[1]
		}
	}

	if len(id) != 11 {
		return "", false
	}

	return id, true
}
