package contact

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	DemoSubject = "Demo Request"
	DemoMessage = "Hello, I am interested in a demo of your AI-powered real estate platform. " +
		"I would like to learn more about how it can help my business. " +
		"Please provide more information about scheduling a demo session."
)

const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldSubject = "subject"
	FieldMessage = "message"
)

var fieldMessages = map[string]string{
	FieldName:    "Name must be at least 2 characters",
	FieldEmail:   "Please enter a valid email address",
	FieldSubject: "Subject must be at least 5 characters",
	FieldMessage: "Message must be at least 10 characters",
}

var contactEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	formValidator     *validator.Validate
	formValidatorOnce sync.Once
)

func getFormValidator() *validator.Validate {
	formValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("contactemail", func(fl validator.FieldLevel) bool {
			return contactEmailPattern.MatchString(fl.Field().String())
		})
		formValidator = v
	})
	return formValidator
}

// FieldErrors maps a field name to its single error message.
type FieldErrors map[string]string

func (fe FieldErrors) Get(field string) string {
	if fe == nil {
		return ""
	}
	return fe[field]
}

// ContactForm is the user-editable form state. Lengths count runes.
type ContactForm struct {
	Name          string `json:"name" form:"name" validate:"min=2"`
	Email         string `json:"email" form:"email" validate:"contactemail"`
	Subject       string `json:"subject" form:"subject" validate:"min=5"`
	Message       string `json:"message" form:"message" validate:"min=10"`
	IsDemoRequest bool   `json:"isDemoRequest" form:"isDemoRequest"`

	priorSubject string
	priorMessage string
	hasPrior     bool
}

// Validate applies every rule and reports all failing fields at once.
func (f *ContactForm) Validate() (bool, FieldErrors) {
	err := getFormValidator().Struct(f)
	if err == nil {
		return true, FieldErrors{}
	}

	errs := FieldErrors{}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		for field, msg := range fieldMessages {
			errs[field] = msg
		}
		return false, errs
	}

	for _, fe := range validationErrs {
		if msg, ok := fieldMessages[fe.Field()]; ok {
			errs[fe.Field()] = msg
		}
	}

	return false, errs
}

// SetDemoRequest toggles the demo shortcut. Turning it on overwrites subject
// and message with the canned demo text; turning it off restores whatever the
// user had typed before.
func (f *ContactForm) SetDemoRequest(on bool) {
	if on {
		if !f.IsDemoRequest {
			f.priorSubject = f.Subject
			f.priorMessage = f.Message
			f.hasPrior = true
		}
		f.IsDemoRequest = true
		f.Subject = DemoSubject
		f.Message = DemoMessage
		return
	}

	f.IsDemoRequest = false
	if f.hasPrior {
		f.Subject = f.priorSubject
		f.Message = f.priorMessage
		f.priorSubject, f.priorMessage, f.hasPrior = "", "", false
	}
}

// Reset clears every field and the demo flag after a successful submission.
func (f *ContactForm) Reset() {
	*f = ContactForm{}
}

// Fingerprint identifies the submitted contents; an unchanged fingerprint
// means a resubmission of the same message.
func (f *ContactForm) Fingerprint() string {
	return strings.Join([]string{f.Name, f.Email, f.Subject, f.Message}, "\x1f")
}
