package editor

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/eringen/pilotsite/apperr"
)

// validate checks f (already trimmed) before any write. The first failing
// field is reported.
func (b *Binder) validate(f Form) error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required.Error("title is required")),
		validation.Field(&f.Content, validation.When(b.kind == Draft,
			validation.Required.Error("content is required"))),
		validation.Field(&f.Image, validation.When(f.Image != "" && !isLocalURL(f.Image),
			is.URL.Error("image must be a valid URL"))),
	)
	if err := firstFieldError(err); err != nil {
		return err
	}
	for _, platform := range SocialPlatforms {
		link := f.Social[platform]
		if err := validation.Validate(link, is.URL.Error(platform+" link must be a valid URL")); err != nil {
			return apperr.Invalid(platform, err.Error())
		}
	}
	return nil
}

// fieldOrder fixes which field is reported when several fail.
var fieldOrder = []string{"Title", "Content", "Image"}

func firstFieldError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return apperr.Invalid("", err.Error())
	}
	for _, name := range fieldOrder {
		if fe, ok := errs[name]; ok && fe != nil {
			return apperr.Invalid(jsonName(name), fe.Error())
		}
	}
	for name, fe := range errs {
		return apperr.Invalid(jsonName(name), fe.Error())
	}
	return nil
}

// ValidateStruct keys errors by struct field name since Form has no tags.
func jsonName(field string) string {
	return strings.ToLower(field)
}

func isLocalURL(s string) bool {
	return len(s) > 1 && s[0] == '/' && s[1] != '/'
}
