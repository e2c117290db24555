// Package validation checks contact-form input before it is persisted.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"huanbo/internal/contact/models"
)

// FieldError names one rejected field and the zh-CN message shown to the
// visitor. Field uses the form key the landing page posts.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is ordered by form field order, at most one per field.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the error for field, if any.
func (v ValidationErrors) Field(field string) (FieldError, bool) {
	for _, e := range v {
		if e.Field == field {
			return e, true
		}
	}
	return FieldError{}, false
}

// form mirrors models.ContactForm with the rules attached. Tags on a field
// run in order and stop at the first failure.
type form struct {
	Name        string `json:"name" validate:"min=2,max=50,personname"`
	Contact     string `json:"contact" validate:"contact"`
	Company     string `json:"company" validate:"omitempty,max=100"`
	ServiceType string `json:"service-type" validate:"omitempty,servicetype"`
	CargoType   string `json:"cargo-type" validate:"omitempty,max=100"`
	Destination string `json:"destination" validate:"omitempty,max=100"`
	Message     string `json:"message" validate:"min=10,max=2000"`
}

var messages = map[string]string{
	"name":         "姓名必须在2-50个字符之间",
	"name.format":  "姓名只能包含中文、英文和空格",
	"contact":      "请输入有效的邮箱地址或手机号码",
	"company":      "公司名称不能超过100个字符",
	"service-type": "请选择有效的服务类型",
	"cargo-type":   "货物类型不能超过100个字符",
	"destination":  "目的地不能超过100个字符",
	"message":      "需求描述必须在10-2000个字符之间",
}

// Go's \s is ASCII-only, so Unicode space separators (U+3000 from
// Chinese IMEs, NBSP) and the line/paragraph separators are listed.
const unicodeSpace = `\s\x0B\p{Zs}\x{FEFF}\x{2028}\x{2029}`

var personNamePattern = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}a-zA-Z` + unicodeSpace + `]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("contact", func(fl validator.FieldLevel) bool {
		c := fl.Field().String()
		return models.IsEmail(c) || models.IsMobile(c)
	})
	_ = v.RegisterValidation("servicetype", func(fl validator.FieldLevel) bool {
		return models.IsServiceType(fl.Field().String())
	})
	return v
}

// Normalize trims every field.
func Normalize(in models.ContactForm) models.ContactForm {
	return models.ContactForm{
		Name:        strings.TrimSpace(in.Name),
		Contact:     strings.TrimSpace(in.Contact),
		Company:     strings.TrimSpace(in.Company),
		ServiceType: strings.TrimSpace(in.ServiceType),
		CargoType:   strings.TrimSpace(in.CargoType),
		Destination: strings.TrimSpace(in.Destination),
		Message:     strings.TrimSpace(in.Message),
	}
}

// Validate trims in and checks every rule. It returns the normalized form and
// nil, or the normalized form and every violation. Lengths count runes.
func Validate(in models.ContactForm) (models.ContactForm, ValidationErrors) {
	out := Normalize(in)
	err := validate.Struct(form(out))
	if err == nil {
		return out, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Only reachable on programmer error (non-struct input).
		return out, ValidationErrors{{Field: "form", Message: "表单验证失败"}}
	}

	result := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fe.Field()
		if fe.Tag() == "personname" {
			key = "name.format"
		}
		result = append(result, FieldError{Field: fe.Field(), Message: messages[key]})
	}
	return out, result
}
