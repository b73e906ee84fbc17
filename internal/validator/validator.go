package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// courseCodePattern matches "<subjectCode>.O<number>[.<number>]", e.g. IT001.O11 or IT001.O11.1.
var courseCodePattern = regexp.MustCompile(`^[A-Za-z0-9]+\.O\d+(\.\d+)?$`)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Setup registers the validator with English translations and the custom
// course_code rule on Gin's binding engine. Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
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

	_ = v.RegisterValidation("course_code", func(fl govalidator.FieldLevel) bool {
		return IsCourseCode(fl.Field().String())
	})
	_ = v.RegisterTranslation("course_code", trans,
		func(ut ut.Translator) error {
			return ut.Add("course_code", "{0} must be in format '<subjectCode>.O<number>[.<number>]'", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			t, _ := ut.T("course_code", fe.Field())
			return t
		},
	)
}

// IsCourseCode reports whether code follows the offering code convention.
func IsCourseCode(code string) bool {
	return courseCodePattern.MatchString(code)
}

// SubjectCodeOf returns the subject prefix of an offering code ("IT001.O11.1" → "IT001").
func SubjectCodeOf(code string) (string, bool) {
	if !IsCourseCode(code) {
		return "", false
	}
	return code[:strings.Index(code, ".")], true
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
