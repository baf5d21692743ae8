package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/books-catalog/cmd/api/book"
)

const topicBookAdded = "/New_book_added"

var ErrNotificationsDisabled = errors.New("notifications not enabled")

type Ntfy struct {
	baseURL string
	enabled bool
	client  *http.Client
}

func NewNtfy(enableNotifications bool, notificationsBaseURL string, client *http.Client) *Ntfy {
	if client == nil {
		client = &http.Client{}
	}
	return &Ntfy{
		baseURL: strings.TrimSuffix(notificationsBaseURL, "/"),
		enabled: enableNotifications,
		client:  client,
	}
}

/* Publishes a plain text message on the book added topic. The deadline comes from ctx. */
func (ntf *Ntfy) BookAdded(ctx context.Context, b book.Book) error {
	if !ntf.enabled {
		return ErrNotificationsDisabled
	}

	topic := ntf.baseURL + topicBookAdded
	message := fmt.Sprintf("New book added:\nTitle: %s\nAuthor: %s\nPrice: %s", b.Title(), b.Author(), b.Price().StringFixed(2))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", topic, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return book.NewErrNotificationFailed(resp.StatusCode)
	}
	return nil
}
