package inmemory

import (
	"context"
	"fmt"

	"github.com/books-catalog/cmd/api/book"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/shopspring/decimal"
)

const tableBook = "book"

type InMemoryStore struct {
	db *memdb.MemDB
}

func NewInMemoryStore() (*InMemoryStore, error) {
	// The "id" index is the entry position, so iterating it yields insertion order.
	// Non-unique indexes are suffixed with the id, which keeps author lookups ordered too.
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableBook: {
				Name: tableBook,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "Position"},
					},
					"entry_id": {
						Name:    "entry_id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "EntryID"},
					},
					"author": {
						Name:         "author",
						Unique:       false,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Author"},
					},
				},
			},
		},
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("validating in-memory schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &InMemoryStore{db: db}, nil
}

type AdaptedBook struct {
	Position uint64
	EntryID  string
	Title    string
	Author   string
	Price    decimal.Decimal
}

func adaptEntryToRow(e book.Entry) AdaptedBook {
	return AdaptedBook{
		Position: e.Position,
		EntryID:  e.ID.String(),
		Title:    e.Book.Title(),
		Author:   e.Book.Author(),
		Price:    e.Book.Price(),
	}
}

func adaptRowToEntry(row AdaptedBook) (book.Entry, error) {
	id, err := uuid.Parse(row.EntryID)
	if err != nil {
		return book.Entry{}, fmt.Errorf("parsing entry id %q: %w", row.EntryID, err)
	}
	return book.Entry{
		ID:       id,
		Position: row.Position,
		Book:     book.New(row.Title, row.Author, row.Price),
	}, nil
}

/* Stores the book after the last stored entry. Write transactions are exclusive, so positions never collide. */
func (store *InMemoryStore) AppendBook(ctx context.Context, b book.Book) (book.Entry, error) {
	if err := ctx.Err(); err != nil {
		return book.Entry{}, fmt.Errorf("storing book on db: %w", err)
	}

	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.Last(tableBook, "id")
	if err != nil {
		return book.Entry{}, fmt.Errorf("storing book on db: %w", err)
	}
	var position uint64 = 1
	if raw != nil {
		position = raw.(AdaptedBook).Position + 1
	}

	entry := book.Entry{
		ID:       uuid.New(),
		Position: position,
		Book:     b,
	}
	if err := txn.Insert(tableBook, adaptEntryToRow(entry)); err != nil {
		return book.Entry{}, fmt.Errorf("storing book on db: %w", err)
	}

	txn.Commit()
	return entry, nil
}

func (store *InMemoryStore) GetEntry(ctx context.Context, id uuid.UUID) (book.Entry, error) {
	if err := ctx.Err(); err != nil {
		return book.Entry{}, fmt.Errorf("searching by ID: %w", err)
	}

	txn := store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableBook, "entry_id", id.String())
	if err != nil {
		return book.Entry{}, fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return book.Entry{}, fmt.Errorf("searching by ID: %w", book.ErrResponseBookNotFound)
	}

	return adaptRowToEntry(raw.(AdaptedBook))
}

func (store *InMemoryStore) ListBooks(ctx context.Context) ([]book.Book, error) {
	if err := ctx.Err(); err != nil {
		return []book.Book{}, fmt.Errorf("listing books from db: %w", err)
	}

	txn := store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableBook, "id")
	if err != nil {
		return []book.Book{}, fmt.Errorf("listing books from db: %w", err)
	}

	books, err := collectBooks(it)
	if err != nil {
		return []book.Book{}, fmt.Errorf("listing books from db: %w", err)
	}
	return books, nil
}

func (store *InMemoryStore) ListBooksByAuthor(ctx context.Context, author string) ([]book.Book, error) {
	if err := ctx.Err(); err != nil {
		return []book.Book{}, fmt.Errorf("listing books by author from db: %w", err)
	}

	txn := store.db.Txn(false)
	defer txn.Abort()

	// Empty authors are left out of the author index, so they need a full scan.
	var it memdb.ResultIterator
	var err error
	if author == "" {
		it, err = txn.Get(tableBook, "id")
		if err == nil {
			it = memdb.NewFilterIterator(it, func(obj interface{}) bool {
				return obj.(AdaptedBook).Author != ""
			})
		}
	} else {
		it, err = txn.Get(tableBook, "author", author)
	}
	if err != nil {
		return []book.Book{}, fmt.Errorf("listing books by author from db: %w", err)
	}

	books, err := collectBooks(it)
	if err != nil {
		return []book.Book{}, fmt.Errorf("listing books by author from db: %w", err)
	}
	return books, nil
}

func collectBooks(it memdb.ResultIterator) ([]book.Book, error) {
	books := []book.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		entry, err := adaptRowToEntry(obj.(AdaptedBook))
		if err != nil {
			return []book.Book{}, err
		}
		books = append(books, entry.Book)
	}
	return books, nil
}
