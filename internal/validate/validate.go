// Package validate holds the input rules for registration, posts, comments
// and messages. Violations are reported one at a time, first failing field
// first, as a Validation application error.
package validate

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
	"github.com/PaulBabatuyi/socialnet/internal/normalize"
)

const (
	MinNameLength     = 5
	MinPasswordLength = 8
	MaxPostImages     = 5
)

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*]`)
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	_ = val.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = val.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return !normalize.Blank(fl.Field().String())
	})
	return val
}

// Registration is the input of the register operation.
type Registration struct {
	Name     string `validate:"min=5"`
	Username string `validate:"min=5"`
	Email    string `validate:"email"`
	Password string `validate:"min=8,strongpassword"`
}

// Login is the input of the login operation.
type Login struct {
	Email    string `validate:"email"`
	Password string `validate:"required"`
}

// Profile holds the fields an edit-profile request changes. Empty fields are
// not being changed.
type Profile struct {
	Name     string `validate:"omitempty,min=5"`
	Username string `validate:"omitempty,min=5"`
	Email    string `validate:"omitempty,email"`
}

// Post is the input of add/edit post.
type Post struct {
	Images []string `validate:"min=1,max=5,dive,notblank"`
}

// Comment is the input of add/edit comment.
type Comment struct {
	Text string `validate:"notblank"`
}

var messages = map[string]string{
	"Registration.Name":     "Name cannot be less than 5 characters!",
	"Registration.Username": "Username cannot be less than 5 characters!",
	"Registration.Email":    "Enter a valid email!",
	"Registration.Password": "Password cannot be less than 8 characters and must contain atleast 1 uppercase, 1 lowercase, number and special character",
	"Login.Email":           "Enter a valid email!",
	"Login.Password":        "Password cannot be empty!",
	"Profile.Name":          "Name cannot be less than 5 characters!",
	"Profile.Username":      "Username cannot be less than 5 characters!",
	"Profile.Email":         "Enter a valid email!",
	"Post.Images":           "A post must contain between 1 and 5 images!",
	"Comment.Text":          "You cannot post an empty comment",
}

// Struct validates one of the input types above.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.Internal, "validation failed", err)
	}
	first := verrs[0]
	// dive errors carry an index, e.g. Post.Images[2]
	key, _, _ := strings.Cut(first.StructNamespace(), "[")
	if msg, ok := messages[key]; ok {
		return apperr.New(apperr.Validation, msg)
	}
	return apperr.New(apperr.Validation, first.Error())
}

// StrongPassword reports whether p has a lower, upper, digit and special
// character.
func StrongPassword(p string) bool {
	return lowerRe.MatchString(p) && upperRe.MatchString(p) &&
		digitRe.MatchString(p) && specialRe.MatchString(p)
}

// Message checks that a message carries text or at least one image.
func Message(text string, images []string) error {
	if normalize.Blank(text) && len(nonBlank(images)) == 0 {
		return apperr.New(apperr.Validation, "You cannot send a message without text or images!")
	}
	return nil
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if !normalize.Blank(s) {
			out = append(out, s)
		}
	}
	return out
}
