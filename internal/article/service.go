package article

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pressroom/app/internal/gitstore"
	"pressroom/app/internal/render"
)

// SiteLayout describes where the published site lives and how its derived
// artifacts are laid out inside the content repository.
type SiteLayout struct {
	BaseURL  string
	SiteName string
	PagesDir string
	ShareDir string
}

// ServiceOptions wires the publishing service dependencies.
type ServiceOptions struct {
	Documents *DocumentStore
	Artifacts gitstore.Store
	Layout    SiteLayout
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// ShareURLs are the pre-built social sharing links returned on publish.
type ShareURLs struct {
	WhatsApp string `json:"whatsapp"`
	Facebook string `json:"facebook"`
	Twitter  string `json:"twitter"`
}

// PublishResult reports a successful create operation.
type PublishResult struct {
	ArticleID  string
	Slug       string
	ArticleURL string
	ShareURLs  ShareURLs
	Warning    string
}

// UpdateResult reports a successful update operation.
type UpdateResult struct {
	ArticleID string
	Warning   string
}

// DeleteResult reports a successful delete operation.
type DeleteResult struct {
	ArticleID string
}

// ShareResult reports a successfully created share page.
type ShareResult struct {
	ShareID  string
	ShareURL string
}

// Service implements the publishing operations: each one validates its
// payload, applies exactly one mutation to the shared document and then
// performs any derived-artifact writes best-effort. Artifact failures are
// reported as warnings, never as operation failures; the document write is
// authoritative.
type Service struct {
	documents *DocumentStore
	artifacts gitstore.Store
	layout    SiteLayout
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	now       func() time.Time
	newID     func() string
}

// NewService wires the publishing service with its dependencies.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Documents == nil {
		return nil, eris.New("document store is required")
	}
	if opts.Artifacts == nil {
		return nil, eris.New("artifact store is required")
	}
	if opts.Layout.BaseURL == "" {
		return nil, eris.New("site base URL is required")
	}

	layout := opts.Layout
	if layout.SiteName == "" {
		layout.SiteName = "Pressroom"
	}
	if layout.PagesDir == "" {
		layout.PagesDir = "article"
	}
	if layout.ShareDir == "" {
		layout.ShareDir = "share"
	}

	return &Service{
		documents: opts.Documents,
		artifacts: opts.Artifacts,
		layout:    layout,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
		now:       time.Now,
		newID:     NewID,
	}, nil
}

// Create validates the payload, derives an identifier and slug, inserts the
// record into the document and renders the article page.
func (s *Service) Create(ctx context.Context, input CreateInput) (*PublishResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	record := s.buildRecord(input)

	if _, err := s.documents.Apply(ctx, fmt.Sprintf("publish article: %s", record.Title), func(doc *Document) error {
		doc.Articles[record.ID] = record
		return nil
	}); err != nil {
		s.recordError(logrus.Fields{"id": record.ID}, err, "inserting article into document")
		return nil, err
	}

	articleURL := s.pageURL(record.ID)
	result := &PublishResult{
		ArticleID:  record.ID,
		Slug:       record.Slug,
		ArticleURL: articleURL,
		ShareURLs:  shareLinks(record.Title, articleURL),
	}

	if warning := s.writeArticlePage(ctx, record); warning != "" {
		result.Warning = warning
	}

	return result, nil
}

// Update replaces the provided mutable fields of an existing record. The
// identifier and creation timestamp are preserved; the page artifact is
// re-rendered so it does not drift from the document.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var updated Record
	if _, err := s.documents.Apply(ctx, fmt.Sprintf("update article: %s", input.ID), func(doc *Document) error {
		record, ok := doc.Articles[input.ID]
		if !ok {
			return eris.Wrapf(ErrArticleNotFound, "updating %s", input.ID)
		}

		input.apply(&record)

		if record.ContentType == ContentTypeVideo {
			if _, ok := YouTubeVideoID(record.VideoURL); !ok {
				return &ValidationError{Fields: []string{"videoUrl"}}
			}
		}

		doc.Articles[input.ID] = record
		updated = record
		return nil
	}); err != nil {
		s.recordError(logrus.Fields{"id": input.ID}, err, "updating article in document")
		return nil, err
	}

	result := &UpdateResult{ArticleID: input.ID}
	if warning := s.writeArticlePage(ctx, updated); warning != "" {
		result.Warning = warning
	}

	return result, nil
}

// Delete removes the record from the document and best-effort removes its
// rendered page.
func (s *Service) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	if id == "" {
		return nil, &ValidationError{Fields: []string{"id"}}
	}

	if _, err := s.documents.Apply(ctx, fmt.Sprintf("remove article: %s", id), func(doc *Document) error {
		if _, ok := doc.Articles[id]; !ok {
			return eris.Wrapf(ErrArticleNotFound, "deleting %s", id)
		}
		delete(doc.Articles, id)
		return nil
	}); err != nil {
		s.recordError(logrus.Fields{"id": id}, err, "removing article from document")
		return nil, err
	}

	s.deleteArticlePage(ctx, id)

	return &DeleteResult{ArticleID: id}, nil
}

// CreateShare renders and stores a standalone share page. Unlike page
// artifacts this write is the whole operation, so its failure is the
// operation's failure.
func (s *Service) CreateShare(ctx context.Context, input ShareInput) (*ShareResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	shareID := fmt.Sprintf("%d", s.now().UnixMilli())
	slug := fmt.Sprintf("%s-%s", Slugify(input.Title), shareID)
	path := fmt.Sprintf("%s/%s.html", s.layout.ShareDir, slug)
	shareURL := fmt.Sprintf("%s/%s/%s.html", s.layout.BaseURL, s.layout.ShareDir, slug)

	targetURL := s.layout.BaseURL
	if input.ArticleID != "" {
		targetURL = s.pageURL(input.ArticleID)
	}

	page, err := render.SharePage(render.ShareData{
		Title:     input.Title,
		Excerpt:   input.Excerpt,
		Image:     input.Image,
		ShareURL:  shareURL,
		TargetURL: targetURL,
		SiteName:  s.layout.SiteName,
	})
	if err != nil {
		s.recordError(logrus.Fields{"slug": slug}, err, "rendering share page")
		return nil, err
	}

	if err := s.artifacts.Write(ctx, path, page, fmt.Sprintf("share page: %s", input.Title), ""); err != nil {
		s.recordError(logrus.Fields{"path": path}, err, "writing share page")
		return nil, err
	}

	return &ShareResult{ShareID: shareID, ShareURL: shareURL}, nil
}

func (s *Service) buildRecord(input CreateInput) Record {
	contentType := input.ContentType
	if contentType == "" {
		contentType = ContentTypeArticle
	}

	sections := input.Sections
	if len(sections) == 0 {
		sections = []string{DefaultSection}
	}

	gallery := input.GalleryImages
	if len(gallery) == 0 {
		gallery = []string{input.CoverImage}
	}

	return Record{
		ID:            s.newID(),
		Slug:          Slugify(input.Title),
		Title:         input.Title,
		Category:      input.Category,
		Author:        input.Author,
		Excerpt:       input.Excerpt,
		Body:          input.Body,
		CoverImage:    input.CoverImage,
		GalleryImages: gallery,
		ContentType:   contentType,
		VideoURL:      input.VideoURL,
		Sections:      sections,
		CreatedAt:     s.now().UTC(),
		Status:        StatusPublished,
	}
}

// writeArticlePage renders the record's static page and commits it. Failures
// are logged and returned as a warning; they never escalate into failing the
// document mutation they accompany.
func (s *Service) writeArticlePage(ctx context.Context, record Record) string {
	articleURL := s.pageURL(record.ID)
	links := shareLinks(record.Title, articleURL)

	videoID := ""
	isVideo := record.ContentType == ContentTypeVideo
	if isVideo {
		videoID, _ = YouTubeVideoID(record.VideoURL)
	}

	page, err := render.ArticlePage(render.PageData{
		Title:         record.Title,
		Category:      record.Category,
		Author:        record.Author,
		Excerpt:       record.Excerpt,
		Body:          record.Body,
		CoverImage:    record.CoverImage,
		GalleryImages: record.GalleryImages,
		IsVideo:       isVideo,
		VideoID:       videoID,
		VideoURL:      record.VideoURL,
		CanonicalURL:  articleURL,
		SiteName:      s.layout.SiteName,
		SiteURL:       s.layout.BaseURL,
		PublishedAt:   record.CreatedAt,
		ShareWhatsApp: links.WhatsApp,
		ShareFacebook: links.Facebook,
	})
	if err != nil {
		s.recordError(logrus.Fields{"id": record.ID}, err, "rendering article page")
		return "article page could not be rendered"
	}

	path := s.pagePath(record.ID)

	// Overwriting an existing page needs its current revision.
	revision := ""
	if existing, err := s.artifacts.Read(ctx, path); err == nil {
		revision = existing.Revision
	} else if !eris.Is(err, gitstore.ErrNotFound) {
		s.recordError(logrus.Fields{"path": path}, err, "reading existing article page")
		return "article page could not be written"
	}

	if err := s.artifacts.Write(ctx, path, page, fmt.Sprintf("article page: %s", record.Title), revision); err != nil {
		s.recordError(logrus.Fields{"path": path}, err, "writing article page")
		return "article page could not be written"
	}

	return ""
}

// deleteArticlePage is best-effort: the page may never have been written, or
// the store may refuse; neither outcome affects the completed delete.
func (s *Service) deleteArticlePage(ctx context.Context, id string) {
	path := s.pagePath(id)

	existing, err := s.artifacts.Read(ctx, path)
	if err != nil {
		if !eris.Is(err, gitstore.ErrNotFound) {
			s.recordError(logrus.Fields{"path": path}, err, "reading article page before delete")
		}
		return
	}

	if err := s.artifacts.Delete(ctx, path, fmt.Sprintf("remove article page: %s", id), existing.Revision); err != nil {
		s.recordError(logrus.Fields{"path": path}, err, "deleting article page")
	}
}

func (s *Service) pagePath(id string) string {
	return fmt.Sprintf("%s/%s.html", s.layout.PagesDir, id)
}

func (s *Service) pageURL(id string) string {
	return fmt.Sprintf("%s/%s/%s.html", s.layout.BaseURL, s.layout.PagesDir, id)
}

func shareLinks(title, articleURL string) ShareURLs {
	text := url.QueryEscape(title + " - " + articleURL)
	escapedURL := url.QueryEscape(articleURL)

	return ShareURLs{
		WhatsApp: "https://wa.me/?text=" + text,
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + escapedURL,
		Twitter:  "https://twitter.com/intent/tweet?text=" + url.QueryEscape(title) + "&url=" + escapedURL,
	}
}

func (s *Service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
