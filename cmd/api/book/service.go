package book

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_service.go -package=mocks

type ServiceAPI interface {
	AddBook(ctx context.Context, req AddBookRequest) (Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (Entry, error)
	ListBooks(ctx context.Context) ([]Book, error)
	Titles(ctx context.Context) ([]string, error)
	TotalPrice(ctx context.Context) (decimal.Decimal, error)
	FindByAuthor(ctx context.Context, author string) ([]Book, error)
	Cheapest(ctx context.Context) ([]Book, error)
	Summary(ctx context.Context) (Summary, error)
}

type Repository interface {
	AppendBook(ctx context.Context, b Book) (Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (Entry, error)
	ListBooks(ctx context.Context) ([]Book, error)
	ListBooksByAuthor(ctx context.Context, author string) ([]Book, error)
}

type Notifier interface {
	BookAdded(ctx context.Context, b Book) error
}

// Entry is a book as stored by a Repository. Position follows the order of
// AppendBook calls, starting at 1.
type Entry struct {
	ID       uuid.UUID
	Position uint64
	Book     Book
}

type Service struct {
	repo                 Repository
	notifier             Notifier
	notificationsTimeout time.Duration
	log                  *zap.Logger
	notifying            sync.WaitGroup
}

func NewService(repo Repository, notifier Notifier, notificationsTimeout time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:                 repo,
		notifier:             notifier,
		notificationsTimeout: notificationsTimeout,
		log:                  log,
	}
}

type AddBookRequest struct {
	Title  string
	Author string
	Price  decimal.Decimal
}

func (s *Service) AddBook(ctx context.Context, req AddBookRequest) (Entry, error) {
	entry, err := s.repo.AppendBook(ctx, New(req.Title, req.Author, req.Price))
	if err != nil {
		return Entry{}, repositoryError("AddBook", err)
	}

	if s.notifier != nil {
		s.notifying.Add(1)
		go func() {
			defer s.notifying.Done()
			s.notifyBookAdded(entry.Book)
		}()
	}

	return entry, nil
}

/* Sends the notification detached from the request context, bounded by the notifications timeout. */
func (s *Service) notifyBookAdded(b Book) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notificationsTimeout)
	defer cancel()

	if err := s.notifier.BookAdded(ctx, b); err != nil {
		s.log.Warn("book added notification failed", zap.String("title", b.Title()), zap.Error(err))
	}
}

/* Blocks until every notification in flight is sent, or until ctx is done. */
func (s *Service) WaitNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifying.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for notifications: %w", ctx.Err())
	}
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResponseBookNotFound) {
			return Entry{}, err
		}
		return Entry{}, repositoryError("GetEntry", err)
	}
	return entry, nil
}

func (s *Service) ListBooks(ctx context.Context) ([]Book, error) {
	c, err := s.catalog(ctx, "ListBooks")
	if err != nil {
		return []Book{}, err
	}
	return c.Books(), nil
}

func (s *Service) Titles(ctx context.Context) ([]string, error) {
	c, err := s.catalog(ctx, "Titles")
	if err != nil {
		return []string{}, err
	}
	return c.Titles(), nil
}

func (s *Service) TotalPrice(ctx context.Context) (decimal.Decimal, error) {
	c, err := s.catalog(ctx, "TotalPrice")
	if err != nil {
		return decimal.Zero, err
	}
	return c.TotalPrice(), nil
}

/* Uses the repository author index, then filters through a Catalog so matching stays exact. */
func (s *Service) FindByAuthor(ctx context.Context, author string) ([]Book, error) {
	books, err := s.repo.ListBooksByAuthor(ctx, author)
	if err != nil {
		return []Book{}, repositoryError("FindByAuthor", err)
	}
	return NewCatalog(books...).FindByAuthor(author), nil
}

func (s *Service) Cheapest(ctx context.Context) ([]Book, error) {
	c, err := s.catalog(ctx, "Cheapest")
	if err != nil {
		return []Book{}, err
	}
	return c.Cheapest(), nil
}

type Summary struct {
	Count         int
	TotalPrice    decimal.Decimal
	CheapestPrice *decimal.Decimal
	Titles        []string
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	c, err := s.catalog(ctx, "Summary")
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Count:      c.Len(),
		TotalPrice: c.TotalPrice(),
		Titles:     c.Titles(),
	}
	if cheapest := c.Cheapest(); len(cheapest) > 0 {
		p := cheapest[0].Price()
		summary.CheapestPrice = &p
	}
	return summary, nil
}

/* Loads a private Catalog from a consistent snapshot of the repository. */
func (s *Service) catalog(ctx context.Context, op string) (*Catalog, error) {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, repositoryError(op, err)
	}
	return NewCatalog(books...), nil
}

func repositoryError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout on call to %s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("call to %s canceled: %w", op, err)
	}
	return ErrResponse{
		Code:    ErrResponseFromRepository.Code,
		Message: ErrResponseFromRepository.Message + err.Error(),
	}
}
