package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"sixchan/models"
	"sixchan/utils"

	"github.com/go-playground/validator/v10"
)

// formValidate checks every submitted form. Field limits come from config
// and are spelled out in the struct tags below.
var formValidate *validator.Validate

func init() {
	formValidate = validator.New()
	formValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	if err := formValidate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return utils.ValidUsername(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register username validation: %v", err))
	}
	if err := formValidate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return utils.ValidPassword(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register password validation: %v", err))
	}
}

// validateForm runs the validator and folds its errors into one
// ErrInvalidArgument naming each offending field.
func validateForm(form interface{}) error {
	err := formValidate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return models.InvalidArgument("%s", strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be an email address"
	case "username":
		return fe.Field() + " may only contain letters, digits and underscores"
	case "password":
		return fe.Field() + " needs 8+ characters with a letter, a digit and one of @$!%*#?&"
	case "eqfield":
		return fe.Field() + " does not match"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

type threadForm struct {
	ThreadName string `form:"thread_name" validate:"required,max=100"`
	AnonName   string `form:"anon_name" validate:"max=50"`
	AnonEmail  string `form:"anon_email" validate:"omitempty,email,max=255"`
	Body       string `form:"body" validate:"required,max=1000"`
}

type resForm struct {
	AnonName  string `form:"anon_name" validate:"max=50"`
	AnonEmail string `form:"anon_email" validate:"omitempty,email,max=255"`
	Body      string `form:"body" validate:"required,max=1000"`
}

type reportForm struct {
	ReasonID int64  `form:"reason_id" validate:"required,gt=0"`
	Detail   string `form:"detail" validate:"max=1000"`
}

type signupForm struct {
	Username             string `form:"username" validate:"required,max=15,username"`
	Email                string `form:"email" validate:"required,email,max=255"`
	DisplayName          string `form:"display_name" validate:"max=50"`
	Password             string `form:"password" validate:"required,password"`
	PasswordConfirmation string `form:"password_confirmation" validate:"required,eqfield=Password"`
}

type loginForm struct {
	Username string `form:"username" validate:"required,max=15,username"`
	Password string `form:"password" validate:"required"`
}

type profileForm struct {
	DisplayName  string `form:"display_name" validate:"max=50"`
	Introduction string `form:"introduction" validate:"max=1000"`
}

type usernameForm struct {
	Username string `form:"username" validate:"required,max=15,username"`
}

type emailForm struct {
	NewEmail string `form:"new_email" validate:"required,email,max=255"`
}

type passwordForm struct {
	CurrentPassword         string `form:"current_password" validate:"required"`
	NewPassword             string `form:"new_password" validate:"required,password"`
	NewPasswordConfirmation string `form:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

type resolveForm struct {
	Decision string `form:"decision" validate:"required,oneof=safe out redact"`
}

type categoryForm struct {
	Name string `form:"name" validate:"required,max=30"`
}

type boardForm struct {
	CategoryID  int64  `form:"category_id" validate:"required,gt=0"`
	Name        string `form:"name" validate:"required,max=30"`
	Description string `form:"description" validate:"max=1000"`
}
