package book

import (
	"fmt"
)

type ErrResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e ErrResponse) Error() string {
	return e.Message
}

var ErrResponseBookEntryBlankFields = ErrResponse{100, "all the fields - title, author and price - must be filled correctly."}
var ErrResponseBookNotFound = ErrResponse{101, "book not found"}
var ErrResponseEntryInvalidJSON = ErrResponse{102, "invalid json request."}
var ErrResponseIdInvalidFormat = ErrResponse{103, "the endpoint is not a valid format ID. Must be /books/{uuid}"}
var ErrResponsePriceInvalidFormat = ErrResponse{104, "field 'price' must be a decimal number."}
var ErrResponseFromRepository = ErrResponse{108, "error from repository: "}
var ErrResponseRequestTimeout = ErrResponse{109, "context deadline exceeded"}

type ErrNotificationFailed struct {
	statusCode int
}

func (e ErrNotificationFailed) Error() string {
	return fmt.Sprintf("ntfy wrong response - want: 200 OK, got: %d", e.statusCode)
}

func NewErrNotificationFailed(statusCode int) ErrNotificationFailed {
	return ErrNotificationFailed{statusCode: statusCode}
}
