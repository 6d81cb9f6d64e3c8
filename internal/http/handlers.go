package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pressroom/app/internal/article"
	"pressroom/app/internal/gitstore"
)

const (
	errorFallbackMessage = "We couldn't process your request right now."
	conflictMessage      = "The article collection is being updated by someone else. Please retry."
	unavailableMessage   = "The content store is unreachable right now."
)

// operationBody is the envelope every publishing endpoint answers with. The
// success flag always agrees with the HTTP status code.
type operationBody struct {
	Success    bool               `json:"success"`
	ArticleID  string             `json:"articleId,omitempty"`
	Slug       string             `json:"slug,omitempty"`
	ArticleURL string             `json:"articleUrl,omitempty"`
	ShareURLs  *article.ShareURLs `json:"shareUrls,omitempty"`
	ShareURL   string             `json:"shareUrl,omitempty"`
	Warning    string             `json:"warning,omitempty"`
	Error      string             `json:"error,omitempty"`
	Fields     []string           `json:"fields,omitempty"`
}

type operationResponse struct {
	Status int
	Body   operationBody
}

type publishRequest struct {
	Body article.CreateInput
}

type updateRequest struct {
	Body article.UpdateInput
}

type deleteRequest struct {
	Body struct {
		ID string `json:"id,omitempty"`
	}
}

type shareRequest struct {
	Body article.ShareInput
}

type healthResponse struct {
	Status int
	Body   struct {
		Status       string `json:"status"`
		ContentStore string `json:"contentStore"`
	}
}

func (s *Server) registerPublishRoute() {
	huma.Post(s.api, "/api/articles", s.publishHandler, jsonOperation(
		"Publish article",
		stdhttp.StatusBadRequest,
		stdhttp.StatusConflict,
		stdhttp.StatusInternalServerError,
		stdhttp.StatusBadGateway,
	))
}

func (s *Server) registerUpdateRoute() {
	huma.Post(s.api, "/api/articles/update", s.updateHandler, jsonOperation(
		"Update article",
		stdhttp.StatusBadRequest,
		stdhttp.StatusNotFound,
		stdhttp.StatusConflict,
		stdhttp.StatusInternalServerError,
		stdhttp.StatusBadGateway,
	))
}

func (s *Server) registerDeleteRoute() {
	huma.Post(s.api, "/api/articles/delete", s.deleteHandler, jsonOperation(
		"Delete article",
		stdhttp.StatusBadRequest,
		stdhttp.StatusNotFound,
		stdhttp.StatusConflict,
		stdhttp.StatusInternalServerError,
		stdhttp.StatusBadGateway,
	))
}

func (s *Server) registerShareRoute() {
	huma.Post(s.api, "/api/share", s.shareHandler, jsonOperation(
		"Create share page",
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
		stdhttp.StatusBadGateway,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) publishHandler(ctx context.Context, input *publishRequest) (*operationResponse, error) {
	result, err := s.articles.Create(ctx, input.Body)
	if err != nil {
		s.recordError(ctx, err, "publishing article", logrus.Fields{"title": input.Body.Title})
		return errorResponse(err), nil
	}

	return &operationResponse{
		Status: stdhttp.StatusOK,
		Body: operationBody{
			Success:    true,
			ArticleID:  result.ArticleID,
			Slug:       result.Slug,
			ArticleURL: result.ArticleURL,
			ShareURLs:  &result.ShareURLs,
			Warning:    result.Warning,
		},
	}, nil
}

func (s *Server) updateHandler(ctx context.Context, input *updateRequest) (*operationResponse, error) {
	result, err := s.articles.Update(ctx, input.Body)
	if err != nil {
		s.recordError(ctx, err, "updating article", logrus.Fields{"id": input.Body.ID})
		return errorResponse(err), nil
	}

	return &operationResponse{
		Status: stdhttp.StatusOK,
		Body: operationBody{
			Success:   true,
			ArticleID: result.ArticleID,
			Warning:   result.Warning,
		},
	}, nil
}

func (s *Server) deleteHandler(ctx context.Context, input *deleteRequest) (*operationResponse, error) {
	result, err := s.articles.Delete(ctx, strings.TrimSpace(input.Body.ID))
	if err != nil {
		s.recordError(ctx, err, "deleting article", logrus.Fields{"id": input.Body.ID})
		return errorResponse(err), nil
	}

	return &operationResponse{
		Status: stdhttp.StatusOK,
		Body: operationBody{
			Success:   true,
			ArticleID: result.ArticleID,
		},
	}, nil
}

func (s *Server) shareHandler(ctx context.Context, input *shareRequest) (*operationResponse, error) {
	result, err := s.articles.CreateShare(ctx, input.Body)
	if err != nil {
		s.recordError(ctx, err, "creating share page", logrus.Fields{"title": input.Body.Title})
		return errorResponse(err), nil
	}

	return &operationResponse{
		Status: stdhttp.StatusOK,
		Body: operationBody{
			Success:   true,
			ArticleID: input.Body.ArticleID,
			ShareURL:  result.ShareURL,
		},
	}, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Status = stdhttp.StatusOK
	resp.Body.Status = "ok"
	resp.Body.ContentStore = "ok"

	if err := s.store.Ping(ctx); err != nil {
		s.recordError(ctx, err, "pinging content store", nil)
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		resp.Body.ContentStore = "error"
	}

	return resp, nil
}

// errorResponse maps a service error onto a status code and response body.
// The success flag never disagrees with the status: a failed operation is a
// non-2xx response, end of story.
func errorResponse(err error) *operationResponse {
	status := stdhttp.StatusInternalServerError
	message := errorFallbackMessage
	var fields []string

	var validationErr *article.ValidationError
	switch {
	case eris.As(err, &validationErr):
		status = stdhttp.StatusBadRequest
		message = validationErr.Error()
		fields = validationErr.Fields
	case eris.Is(err, article.ErrArticleNotFound):
		status = stdhttp.StatusNotFound
		message = "Article not found."
	case eris.Is(err, article.ErrConflict):
		status = stdhttp.StatusConflict
		message = conflictMessage
	case eris.Is(err, gitstore.ErrUnavailable):
		status = stdhttp.StatusBadGateway
		message = unavailableMessage
	}

	return &operationResponse{
		Status: status,
		Body: operationBody{
			Success: false,
			Error:   message,
			Fields:  fields,
		},
	}
}

func jsonOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		for _, status := range statuses {
			code := strconv.Itoa(status)
			if _, ok := op.Responses[code]; !ok {
				op.Responses[code] = &huma.Response{
					Description: stdhttp.StatusText(status),
				}
			}
		}
	}
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
