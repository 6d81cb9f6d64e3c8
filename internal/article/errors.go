package article

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrArticleNotFound indicates the mutation target is absent from the
	// document. Never retried.
	ErrArticleNotFound = eris.New("article not found")

	// ErrConflict indicates the optimistic-concurrency race was lost on every
	// permitted attempt. The caller may retry the whole operation.
	ErrConflict = eris.New("document write conflict")

	// ErrCorruptDocument indicates the stored document could not be decoded.
	// Proceeding with a default document would silently discard existing
	// articles, so the operation is aborted instead.
	ErrCorruptDocument = eris.New("article document is corrupt")
)

// ValidationError reports request fields that are missing or malformed. It is
// raised before any store interaction.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}
