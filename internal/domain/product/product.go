// Package product holds the catalog entity and the checks every identifier
// and write payload must pass before it is sent to the product API.
package product

import (
	"regexp"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidID is returned when an identifier fails sanitization.
var ErrInvalidID = errors.New("invalid product id")

// Product represents a catalog item owned by the external product API.
// Instances are transient read copies and are never persisted locally.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Input is a validated create or update payload: Name is non-empty and
// Price is strictly positive.
type Input struct {
	Name  string
	Price decimal.Decimal
}

// ID is a product identifier proven to match ^[A-Za-z0-9_-]+$.
// Obtain one through ParseID; it is safe to embed into a request path.
type ID string

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseID sanitizes an externally supplied identifier.
func ParseID(s string) (ID, error) {
	if !idPattern.MatchString(s) {
		return "", ErrInvalidID
	}
	return ID(s), nil
}

func (id ID) String() string { return string(id) }
