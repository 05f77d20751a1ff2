// Package validate checks form drafts before they are sent to the API and
// reports errors keyed by the field's wire name.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once  sync.Once
	v     *govalidator.Validate
	trans ut.Translator
)

func setup() {
	v = govalidator.New(govalidator.WithRequiredStructEnabled())
	// Name fields by their form tag, else their JSON tag.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("form"); name != "" {
			return name
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
}

// Errors maps field names to human-readable messages.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for k, msg := range e {
		parts = append(parts, k+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates s. It returns nil or an Errors value.
func Struct(s any) error {
	once.Do(setup)
	if err := v.Struct(s); err != nil {
		return Translate(err)
	}
	return nil
}

// Translate converts a validator error into Errors. Other errors land under
// the "detail" key.
func Translate(err error) Errors {
	fields := make(Errors)
	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}
	fields["detail"] = err.Error()
	return fields
}

// Fields extracts the field map from err, if it is a validation error.
func Fields(err error) (Errors, bool) {
	var fe Errors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
