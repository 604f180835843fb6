package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// RegisterRequest is the body of POST /api/register
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"omitempty,max=255,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SendMessageRequest is the body of POST /api/conversations/{id}/messages
type SendMessageRequest struct {
	Message string `json:"message" validate:"required,notblank,max=20000"`
}

// SetAnswerRequest is the body of PUT /api/conversations/{id}/answers
type SetAnswerRequest struct {
	Key   string `json:"key" validate:"required,notblank,max=100"`
	Value any    `json:"value"`
}

// UpdateSpecificationRequest is the body of PATCH /api/specifications/{id}.
// Document must be a JSON object when present.
type UpdateSpecificationRequest struct {
	Document    json.RawMessage `json:"document,omitempty" validate:"omitempty,jsonobject"`
	BuildPrompt *string         `json:"buildPrompt,omitempty" validate:"omitempty,max=200000"`
}

// Validator checks request bodies against their struct tags
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the custom rules registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	must(v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}))
	must(v.RegisterValidation("jsonobject", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		if !ok {
			return false
		}
		var obj map[string]json.RawMessage
		return json.Unmarshal(raw, &obj) == nil && obj != nil
	}))
	return &Validator{validate: v}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct validates req and returns the first problem as a readable error
func (v *Validator) Struct(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return describe(fieldErrs[0])
}

func describe(fe validator.FieldError) error {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Errorf("%s cannot be empty", field)
	case "min":
		return fmt.Errorf("%s must be at least %s characters long, got %d", field, fe.Param(), length(fe))
	case "max":
		return fmt.Errorf("%s must be at most %s characters long, got %d", field, fe.Param(), length(fe))
	case "email":
		return errors.New("invalid email format")
	case "username":
		return errors.New("username can only contain letters, numbers, underscores, and hyphens")
	case "jsonobject":
		return fmt.Errorf("%s must be a JSON object", field)
	default:
		return fmt.Errorf("%s is invalid (%s)", field, fe.Tag())
	}
}

func length(fe validator.FieldError) int {
	value := reflect.ValueOf(fe.Value())
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return 0
		}
		value = value.Elem()
	}
	if value.Kind() == reflect.String {
		return len([]rune(value.String()))
	}
	return 0
}
