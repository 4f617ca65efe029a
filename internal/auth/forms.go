package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,bcryptlen"`
}

type registerForm struct {
	FirstName string `json:"first_name" validate:"required,min=2"`
	LastName  string `json:"last_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Cargo     string `json:"cargo" validate:"required,min=2"`
	Password  string `json:"password" validate:"required,min=6,bcryptlen"`
}

// Emails are forwarded as typed; the identity service owns matching rules.
func (f *loginForm) normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

func (f *registerForm) normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Cargo = strings.TrimSpace(f.Cargo)
}

var fieldMessages = map[string]string{
	"FirstName": "Informe seu nome",
	"LastName":  "Informe seu sobrenome",
	"Cargo":     "Informe seu cargo",
	"Password":  "Senha mínima de 6 caracteres",
	"Email":     "Email inválido",
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

// tagMessages override fieldMessages for a specific field and rule.
var tagMessages = map[string]string{
	"Password.bcryptlen": "Senha máxima de 72 caracteres",
}

// validationErrors maps validator output to per-field messages.
func validationErrors(v *validator.Validate, form any) map[string]string {
	errs := make(map[string]string)
	err := v.Struct(form)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["general"] = "Dados inválidos"
		return errs
	}
	for _, fe := range fieldErrs {
		if msg, ok := tagMessages[fe.Field()+"."+fe.Tag()]; ok {
			errs[fe.Field()] = msg
			continue
		}
		if msg, ok := fieldMessages[fe.Field()]; ok {
			errs[fe.Field()] = msg
			continue
		}
		errs[fe.Field()] = fe.Error()
	}
	return errs
}

// firstError returns a deterministic single message for JSON responses.
func firstError(errs map[string]string) string {
	for _, field := range []string{"FirstName", "LastName", "Email", "Cargo", "Password", "general"} {
		if msg, ok := errs[field]; ok {
			return msg
		}
	}
	return "Dados inválidos"
}
