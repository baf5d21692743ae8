package inmemory_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"testing"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/inmemory"
	"github.com/google/uuid"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

var ctx context.Context = context.Background()

func TestAppendBook(t *testing.T) {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}

	t.Run("appends a book without errors", func(t *testing.T) {
		is := is.New(t)

		b := book.New("A new book", "Some Author", price("40.00"))

		entry, err := store.AppendBook(ctx, b)
		is.NoErr(err)
		is.True(entry.ID != uuid.Nil)
		is.Equal(entry.Position, uint64(1))
		is.True(entry.Book.Equal(b))

		fetched, err := store.GetEntry(ctx, entry.ID)
		is.NoErr(err)
		is.Equal(fetched.ID, entry.ID)
		is.Equal(fetched.Position, entry.Position)
		is.True(fetched.Book.Equal(b))
	})

	t.Run("positions follow the order of the calls, duplicates included", func(t *testing.T) {
		is := is.New(t)

		b := book.New("Duplicated", "Some Author", price("1"))
		first, err := store.AppendBook(ctx, b)
		is.NoErr(err)
		second, err := store.AppendBook(ctx, b)
		is.NoErr(err)

		is.Equal(first.Position, uint64(2))
		is.Equal(second.Position, uint64(3))
		is.True(first.ID != second.ID)
	})

	t.Run("keeps the exact price", func(t *testing.T) {
		is := is.New(t)

		entry, err := store.AppendBook(ctx, book.New("Precise", "Some Author", price("19.990")))
		is.NoErr(err)

		fetched, err := store.GetEntry(ctx, entry.ID)
		is.NoErr(err)
		is.True(fetched.Book.Price().Equal(price("19.99")))
	})

	t.Run("gets a non existing entry should return a not found error", func(t *testing.T) {
		is := is.New(t)

		entry, err := store.GetEntry(ctx, uuid.New())
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
		is.Equal(entry, book.Entry{})
	})

	t.Run("a cancelled context stops the append", func(t *testing.T) {
		is := is.New(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.AppendBook(cancelled, book.New("Never stored", "Nobody", price("1")))
		is.True(errors.Is(err, context.Canceled))
	})
}

func TestListBooks(t *testing.T) {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}

	is := is.New(t)
	var testBookslist []book.Book
	listSize := 300 //Enough positions to cross a byte boundary on the id index.

	t.Run("list books without errors even if there is no books in the database", func(t *testing.T) {
		is := is.New(t)

		returnedBooks, err := store.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(returnedBooks, []book.Book{})
	})

	// Setting up, storing books to be listed.
	for i := 0; i < listSize; i++ {
		b := book.New(
			fmt.Sprintf("Book number %06v", listSize-i),
			fmt.Sprintf("Author %d", i%3),
			decimal.NewFromInt(int64(i%7)+1),
		)
		_, err := store.AppendBook(ctx, b)
		is.NoErr(err)
		testBookslist = append(testBookslist, b)
	}

	t.Run("list all books in insertion order", func(t *testing.T) {
		is := is.New(t)

		returnedBooks, err := store.ListBooks(ctx)
		is.NoErr(err)
		compareBookLists(is, returnedBooks, testBookslist)
		is.Equal(len(returnedBooks), listSize)
	})

	t.Run("list books by author in insertion order", func(t *testing.T) {
		is := is.New(t)

		expected := []book.Book{}
		for i, b := range testBookslist {
			if i%3 == 1 {
				expected = append(expected, b)
			}
		}

		returnedBooks, err := store.ListBooksByAuthor(ctx, "Author 1")
		is.NoErr(err)
		compareBookLists(is, returnedBooks, expected)
	})

	t.Run("author lookup is exact", func(t *testing.T) {
		is := is.New(t)

		returnedBooks, err := store.ListBooksByAuthor(ctx, "Author")
		is.NoErr(err)
		is.Equal(returnedBooks, []book.Book{})

		returnedBooks, err = store.ListBooksByAuthor(ctx, "author 1")
		is.NoErr(err)
		is.Equal(returnedBooks, []book.Book{})
	})
}

func TestListBooksByEmptyAuthor(t *testing.T) {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}
	is := is.New(t)

	anonymous := book.New("Beowulf", "", price("5"))
	signed := book.New("Emma", "Jane Austen", price("7"))
	for _, b := range []book.Book{anonymous, signed, anonymous} {
		_, err := store.AppendBook(ctx, b)
		is.NoErr(err)
	}

	returnedBooks, err := store.ListBooksByAuthor(ctx, "")
	is.NoErr(err)
	compareBookLists(is, returnedBooks, []book.Book{anonymous, anonymous})
}

func TestConcurrentAppends(t *testing.T) {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}
	is := is.New(t)

	workers, perWorker := 8, 25
	positions := make(chan uint64, workers*perWorker)
	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				entry, err := store.AppendBook(ctx, book.New(fmt.Sprintf("w%d-%d", w, i), "Worker", price("1")))
				if err != nil {
					t.Error(err)
					return
				}
				positions <- entry.Position
			}
		}(w)
	}
	wg.Wait()
	close(positions)

	seen := map[uint64]bool{}
	for p := range positions {
		is.True(!seen[p]) //Every append gets its own position.
		seen[p] = true
	}
	is.Equal(len(seen), workers*perWorker)

	stored, err := store.ListBooks(ctx)
	is.NoErr(err)
	is.Equal(len(stored), workers*perWorker)
}

func TestStoreWithService(t *testing.T) {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}
	svc := book.NewService(store, nil, 0, nil)

	t.Run("empty catalog", func(t *testing.T) {
		is := is.New(t)

		total, err := svc.TotalPrice(ctx)
		is.NoErr(err)
		is.True(total.IsZero())

		titles, err := svc.Titles(ctx)
		is.NoErr(err)
		is.Equal(titles, []string{})

		byAuthor, err := svc.FindByAuthor(ctx, "anyone")
		is.NoErr(err)
		is.Equal(byAuthor, []book.Book{})

		cheapest, err := svc.Cheapest(ctx)
		is.NoErr(err)
		is.Equal(cheapest, []book.Book{})
	})

	t.Run("tied cheapest books are all returned", func(t *testing.T) {
		is := is.New(t)

		dune := book.New("Dune", "Frank Herbert", price("10.00"))
		emma := book.New("Emma", "Jane Austen", price("10.00"))
		for _, b := range []book.Book{dune, emma} {
			_, err := svc.AddBook(ctx, book.AddBookRequest{Title: b.Title(), Author: b.Author(), Price: b.Price()})
			is.NoErr(err)
		}

		cheapest, err := svc.Cheapest(ctx)
		is.NoErr(err)
		compareBookLists(is, cheapest, []book.Book{dune, emma})

		total, err := svc.TotalPrice(ctx)
		is.NoErr(err)
		is.True(total.Equal(price("20.00")))

		titles, err := svc.Titles(ctx)
		is.NoErr(err)
		is.Equal(titles, []string{"Dune", "Emma"})
	})
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// compareBookLists asserts that both lists hold equal books in the same order.
func compareBookLists(is *is.I, got, want []book.Book) {
	is.Helper()

	is.Equal(len(got), len(want))
	for i := range want {
		is.True(got[i].Equal(want[i]))
	}
}
