package book

import (
	"github.com/shopspring/decimal"
)

// Catalog is an ordered, append-only collection of books. It has a single
// owner: callers sharing one across goroutines must serialize access.
type Catalog struct {
	entries []Book
}

func NewCatalog(books ...Book) *Catalog {
	c := &Catalog{}
	for _, b := range books {
		c.Add(b)
	}
	return c
}

/* Appends a book at the end of the catalog. Duplicates are kept. */
func (c *Catalog) Add(b Book) {
	c.entries = append(c.entries, b)
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

/* Returns a copy of the entries in insertion order. */
func (c *Catalog) Books() []Book {
	books := make([]Book, len(c.entries))
	copy(books, c.entries)
	return books
}

func (c *Catalog) Contains(b Book) bool {
	for _, e := range c.entries {
		if e.Equal(b) {
			return true
		}
	}
	return false
}

/* Sums every price. An empty catalog totals zero. */
func (c *Catalog) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.price)
	}
	return total
}

func (c *Catalog) Titles() []string {
	titles := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		titles = append(titles, e.title)
	}
	return titles
}

/* Returns the books whose author matches exactly, in insertion order. */
func (c *Catalog) FindByAuthor(author string) []Book {
	books := []Book{}
	for _, e := range c.entries {
		if e.author == author {
			books = append(books, e)
		}
	}
	return books
}

// Cheapest returns every book tied for the lowest price, in insertion order.
// The minimum is taken over all entries before filtering.
func (c *Catalog) Cheapest() []Book {
	books := []Book{}
	lowest, ok := c.minPrice()
	if !ok {
		return books
	}

	for _, e := range c.entries {
		if e.price.Equal(lowest) {
			books = append(books, e)
		}
	}
	return books
}

func (c *Catalog) minPrice() (decimal.Decimal, bool) {
	if len(c.entries) == 0 {
		return decimal.Decimal{}, false
	}
	lowest := c.entries[0].price
	for _, e := range c.entries[1:] {
		if e.price.LessThan(lowest) {
			lowest = e.price
		}
	}
	return lowest, true
}
