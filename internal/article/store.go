package article

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pressroom/app/internal/gitstore"
)

// maxWriteAttempts bounds the read-mutate-write cycles a single Apply call
// performs before surfacing ErrConflict. Content-store writes are infrequent
// relative to human publishing, so no inter-attempt delay is needed.
const maxWriteAttempts = 3

// Mutation applies one in-memory change to the document: insert, replace or
// delete an entry. Returning an error aborts the cycle before any write.
type Mutation func(doc *Document) error

// DocumentStore applies mutations to the shared article document under
// optimistic concurrency. It holds no in-process state between calls;
// concurrent writers are serialised entirely by the content store's
// revision-conditioned writes.
type DocumentStore struct {
	store  gitstore.Store
	path   string
	logger *logrus.Logger
	now    func() time.Time
}

// NewDocumentStore constructs the updater for the document at path.
func NewDocumentStore(store gitstore.Store, path string, logger *logrus.Logger) (*DocumentStore, error) {
	if store == nil {
		return nil, eris.New("content store is required")
	}
	if path == "" {
		return nil, eris.New("document path is required")
	}

	return &DocumentStore{
		store:  store,
		path:   path,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Load reads and decodes the current document. A missing path decodes as the
// empty document.
func (s *DocumentStore) Load(ctx context.Context) (*Document, error) {
	doc, _, err := s.load(ctx)
	return doc, err
}

// Apply runs one read-mutate-conditioned-write cycle, retrying the whole
// cycle on revision conflicts up to maxWriteAttempts times. On success the
// document's totalCount is recomputed from the mapping and lastUpdatedAt
// reflects this operation; exactly one conditioned write has happened.
func (s *DocumentStore) Apply(ctx context.Context, message string, mutate Mutation) (*Document, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		doc, revision, err := s.load(ctx)
		if err != nil {
			return nil, err
		}

		if err := mutate(doc); err != nil {
			return nil, err
		}

		doc.TotalCount = len(doc.Articles)
		now := s.now().UTC()
		doc.LastUpdated = &now

		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, eris.Wrap(err, "encoding article document")
		}

		err = s.store.Write(ctx, s.path, payload, message, revision)
		if err == nil {
			return doc, nil
		}

		if eris.Is(err, gitstore.ErrConflict) {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{
					"path":    s.path,
					"attempt": attempt,
				}).Warn("document write lost revision race, retrying")
			}
			continue
		}

		return nil, eris.Wrapf(err, "writing document %s", s.path)
	}

	return nil, eris.Wrapf(ErrConflict, "lost revision race %d times on %s", maxWriteAttempts, s.path)
}

func (s *DocumentStore) load(ctx context.Context) (*Document, string, error) {
	file, err := s.store.Read(ctx, s.path)
	if err != nil {
		if eris.Is(err, gitstore.ErrNotFound) {
			return NewDocument(), "", nil
		}
		return nil, "", eris.Wrapf(err, "reading document %s", s.path)
	}

	doc := NewDocument()
	if err := json.Unmarshal(file.Content, doc); err != nil {
		return nil, "", eris.Wrapf(ErrCorruptDocument, "decoding %s: %v", s.path, err)
	}

	if doc.Articles == nil {
		doc.Articles = map[string]Record{}
	}

	return doc, file.Revision, nil
}
