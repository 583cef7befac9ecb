package validator

import (
	"time"

	"github.com/randalmurphal/formstate/pkg/formstate/event"
)

// StartPayload is emitted before a validator runs.
type StartPayload struct {
	FieldName string
	Validator string
	Params    Params
}

// EndPayload is emitted after a validator returns a result.
type EndPayload struct {
	FieldName string
	Validator string
	Result    ExtendedResult
	Duration  time.Duration
}

// ErrorPayload is emitted when a validator is missing, returns an
// error or panics. Result is the failed result the error became.
type ErrorPayload struct {
	FieldName string
	Validator string
	Err       error
	Result    ExtendedResult
}

// Validation topics.
var (
	TopicStart = event.NewTopic[StartPayload](event.ValidationStart)
	TopicEnd   = event.NewTopic[EndPayload](event.ValidationEnd)
	TopicError = event.NewTopic[ErrorPayload](event.ValidationError)
)
