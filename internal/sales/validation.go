package sales

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the dd/mm/yyyy format the backend stores dates in.
const DateLayout = "02/01/2006"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields under their wire names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("dmy", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidationError lists rejected fields keyed by wire name, valued by the
// failed rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, describe(name, e.Fields[name]))
	}
	return strings.Join(msgs, "; ")
}

func describe(field, rule string) string {
	switch rule {
	case "required":
		return field + " is required"
	case "gt":
		return field + " must be a positive number"
	case "gte":
		return field + " must be a non-negative number"
	case "dmy":
		return field + " must be a dd/mm/yyyy date"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, rule)
	}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, ve := range verrs {
		out.Fields[ve.Field()] = ve.Tag()
	}
	return out
}

// ValidateCustomerName trims name and rejects it when blank.
func ValidateCustomerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Fields: map[string]string{"Customer Name": "required"}}
	}
	return name, nil
}

// ValidateSale checks a normalized sale.
func ValidateSale(s Sale) error {
	if err := validate.Struct(s); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidatePayment checks a normalized payment.
func ValidatePayment(p Payment) error {
	if err := validate.Struct(p); err != nil {
		return toValidationError(err)
	}
	return nil
}
