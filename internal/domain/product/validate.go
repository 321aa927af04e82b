package product

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrValidation is wrapped by every field validation failure.
var ErrValidation = errors.New("validation failed")

// GenericValidationMessage is reported by Validate regardless of which field
// was at fault.
const GenericValidationMessage = "name and a positive price are required"

// Field-specific messages reported by ValidateFields.
const (
	MsgNameRequired  = "name is required"
	MsgPriceRequired = "price is required"
	MsgPriceNaN      = "price must be a number"
	MsgPricePositive = "price must be greater than 0"
)

// ValidationError describes a rejected Candidate. Field is empty when the
// message is the generic one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Candidate is unvalidated create/update input. Price keeps its textual form
// so that form values and JSON strings go through the same coercion as JSON
// numbers; an empty Price means the field was missing.
type Candidate struct {
	Name  string
	Price string
}

// Validate checks c for the server-side mutation path. Any failure is
// reported with GenericValidationMessage.
func (c Candidate) Validate() (Input, error) {
	in, err := c.ValidateFields()
	if err != nil {
		return Input{}, &ValidationError{Message: GenericValidationMessage}
	}
	return in, nil
}

// ValidateFields checks c the way the editor form schema does, reporting
// which field failed and why.
func (c Candidate) ValidateFields() (Input, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Input{}, &ValidationError{Field: "name", Message: MsgNameRequired}
	}

	raw := strings.TrimSpace(c.Price)
	if raw == "" {
		return Input{}, &ValidationError{Field: "price", Message: MsgPriceRequired}
	}
	price, err := ParsePrice(raw)
	if err != nil {
		return Input{}, &ValidationError{Field: "price", Message: MsgPriceNaN}
	}
	if !price.IsPositive() {
		return Input{}, &ValidationError{Field: "price", Message: MsgPricePositive}
	}

	return Input{Name: c.Name, Price: price}, nil
}

// maxPriceDigits bounds the significant digits plus the magnitude of the
// exponent of a price, so that its plain decimal form stays short.
const maxPriceDigits = 38

// ErrPriceRange is returned by ParsePrice for prices that cannot be written
// out in at most maxPriceDigits digits.
var ErrPriceRange = errors.New("price out of range")

// ParsePrice parses a decimal price, rejecting values such as "1e50000000"
// whose plain form would expand to millions of digits.
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	exp := int64(price.Exponent())
	if exp < 0 {
		exp = -exp
	}
	digits := int64(len(strings.TrimPrefix(price.Coefficient().String(), "-")))
	if digits+exp > maxPriceDigits {
		return decimal.Zero, ErrPriceRange
	}
	return price, nil
}
