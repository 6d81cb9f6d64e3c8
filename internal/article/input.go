package article

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"github.com/rotisserie/eris"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// CreateInput carries a publish request. Required versus optional fields are
// explicit here and checked once at the boundary, before any store
// interaction.
type CreateInput struct {
	Title         string   `json:"title,omitempty" validate:"required"`
	Category      string   `json:"category,omitempty" validate:"required"`
	CoverImage    string   `json:"coverImage,omitempty" validate:"required,url"`
	Excerpt       string   `json:"excerpt,omitempty" validate:"required"`
	Body          string   `json:"body,omitempty" validate:"required"`
	Author        string   `json:"author,omitempty" validate:"required"`
	GalleryImages []string `json:"galleryImages,omitempty" validate:"omitempty,dive,url"`
	ContentType   string   `json:"contentType,omitempty" validate:"omitempty,oneof=article video"`
	VideoURL      string   `json:"videoUrl,omitempty" validate:"omitempty,url"`
	Sections      []string `json:"sections,omitempty"`
}

// Validate reports every missing or malformed field at once. Video articles
// must reference a URL with an extractable YouTube identifier.
func (in *CreateInput) Validate() error {
	fields, err := collectFieldErrors(validate.Struct(in))
	if err != nil {
		return err
	}

	if in.ContentType == ContentTypeVideo {
		if _, ok := YouTubeVideoID(in.VideoURL); !ok {
			fields = appendField(fields, "videoUrl")
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// UpdateInput carries a partial update. Pointer fields distinguish "leave
// unchanged" from "set to this value"; id and createdAt are never mutable.
type UpdateInput struct {
	ID            string   `json:"id,omitempty" validate:"required"`
	Title         *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Category      *string  `json:"category,omitempty" validate:"omitempty,min=1"`
	CoverImage    *string  `json:"coverImage,omitempty" validate:"omitempty,url"`
	Excerpt       *string  `json:"excerpt,omitempty" validate:"omitempty,min=1"`
	Body          *string  `json:"body,omitempty" validate:"omitempty,min=1"`
	Author        *string  `json:"author,omitempty" validate:"omitempty,min=1"`
	GalleryImages []string `json:"galleryImages,omitempty" validate:"omitempty,dive,url"`
	ContentType   *string  `json:"contentType,omitempty" validate:"omitempty,oneof=article video"`
	VideoURL      *string  `json:"videoUrl,omitempty" validate:"omitempty,url"`
	Sections      []string `json:"sections,omitempty"`
}

// Validate checks the update payload shape. Video coherence can only be
// checked against the stored record and happens inside the mutation.
func (in *UpdateInput) Validate() error {
	fields, err := collectFieldErrors(validate.Struct(in))
	if err != nil {
		return err
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// apply copies the provided fields onto the record. The slug deliberately
// stays as derived at creation so published links remain stable.
func (in *UpdateInput) apply(rec *Record) {
	if in.Title != nil {
		rec.Title = *in.Title
	}
	if in.Category != nil {
		rec.Category = *in.Category
	}
	if in.CoverImage != nil {
		rec.CoverImage = *in.CoverImage
	}
	if in.Excerpt != nil {
		rec.Excerpt = *in.Excerpt
	}
	if in.Body != nil {
		rec.Body = *in.Body
	}
	if in.Author != nil {
		rec.Author = *in.Author
	}
	if in.GalleryImages != nil {
		rec.GalleryImages = in.GalleryImages
		if len(in.GalleryImages) > 0 && in.CoverImage == nil {
			rec.CoverImage = in.GalleryImages[0]
		}
	}
	if in.ContentType != nil {
		rec.ContentType = *in.ContentType
	}
	if in.VideoURL != nil {
		rec.VideoURL = *in.VideoURL
	}
	if in.Sections != nil {
		rec.Sections = in.Sections
	}
}

// ShareInput carries a request for a standalone share page with social
// preview meta tags.
type ShareInput struct {
	Title     string `json:"title,omitempty" validate:"required"`
	Excerpt   string `json:"excerpt,omitempty"`
	Image     string `json:"image,omitempty" validate:"required,url"`
	ArticleID string `json:"articleId,omitempty"`
}

// Validate checks the share payload shape.
func (in *ShareInput) Validate() error {
	fields, err := collectFieldErrors(validate.Struct(in))
	if err != nil {
		return err
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func collectFieldErrors(err error) ([]string, error) {
	if err == nil {
		return nil, nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil, eris.Wrap(err, "validating request payload")
	}

	var fields []string
	for _, fieldError := range fieldErrors {
		fields = appendField(fields, fieldError.Field())
	}
	return fields, nil
}

func appendField(fields []string, name string) []string {
	for _, existing := range fields {
		if existing == name {
			return fields
		}
	}
	return append(fields, name)
}
