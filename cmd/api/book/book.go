package book

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Book is an immutable catalog record. Two books are interchangeable when
// Equal reports true.
type Book struct {
	title  string
	author string
	price  decimal.Decimal
}

/* Builds a book storing the given values verbatim. */
func New(title, author string, price decimal.Decimal) Book {
	return Book{title: title, author: author, price: price}
}

// Prices outside these bounds are rejected by Parse. Rendering or rescaling a
// decimal costs time proportional to its exponent.
const (
	maxPriceExponent = 64
	maxPriceDigits   = 38
)

/* Builds a book from a textual price, rejecting prices that are not decimal numbers. */
func Parse(title, author, price string) (Book, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return Book{}, fmt.Errorf("parsing price %q: %w", price, ErrResponsePriceInvalidFormat)
	}
	if exp := p.Exponent(); exp > maxPriceExponent || exp < -maxPriceExponent {
		return Book{}, fmt.Errorf("price exponent %d out of range: %w", exp, ErrResponsePriceInvalidFormat)
	}
	if digits := len(strings.TrimPrefix(p.Coefficient().Text(10), "-")); digits > maxPriceDigits {
		return Book{}, fmt.Errorf("price has too many digits: %w", ErrResponsePriceInvalidFormat)
	}
	return New(title, author, p), nil
}

func (b Book) Title() string {
	return b.title
}

func (b Book) Author() string {
	return b.author
}

func (b Book) Price() decimal.Decimal {
	return b.price
}

// Equal compares all fields. Prices are compared by value, so 10.0 equals 10.00.
func (b Book) Equal(other Book) bool {
	return b.title == other.title &&
		b.author == other.author &&
		b.price.Equal(other.price)
}

func (b Book) String() string {
	return fmt.Sprintf("%q by %s (%s)", b.title, b.author, b.price.String())
}
