package formstate

import (
	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
)

// ChangeType tells listeners what produced a change event.
type ChangeType string

// Change types.
const (
	ChangeTypeChange    ChangeType = "change"
	ChangeTypeReset     ChangeType = "reset"
	ChangeTypeSetValues ChangeType = "set_values"
	ChangeTypeRestore   ChangeType = "restore"
)

// ChangeEvent is the payload of "field:change" and "form:change".
// FormData is only set on form events; FieldName is empty for bulk
// writes.
type ChangeEvent struct {
	FieldName string
	Value     any
	OldValue  any
	FormData  map[string]any
	Type      ChangeType
}

// SubmitResult is the outcome of Submit and the payload of "form:submit".
type SubmitResult struct {
	// Data is the submitted data: a copy of the form values, or whatever
	// the processor returned.
	Data any

	// Validation holds the latest result for every validated field.
	Validation map[string]validator.Result

	// Valid is true when every result in Validation is valid.
	Valid bool
}

// ResetPayload is the payload of "form:reset".
type ResetPayload struct {
	Values map[string]any
}

// FormValidatePayload is the payload of "form:validate".
type FormValidatePayload struct {
	Valid      bool
	Validation map[string]validator.Result
}

// FieldValidatePayload is the payload of "field:validate".
type FieldValidatePayload struct {
	FieldName string
	Result    validator.Result
}

// FieldPayload is the payload of "field:touch", "field:register",
// "field:unregister" and "field:destroy".
type FieldPayload struct {
	FieldName string
}

// DestroyPayload is the payload of "form:destroy".
type DestroyPayload struct {
	FormID string
}

// Typed topics for the form and field events.
var (
	TopicFormChange   = event.NewTopic[ChangeEvent](event.FormChange)
	TopicFormSubmit   = event.NewTopic[SubmitResult](event.FormSubmit)
	TopicFormReset    = event.NewTopic[ResetPayload](event.FormReset)
	TopicFormValidate = event.NewTopic[FormValidatePayload](event.FormValidate)
	TopicFormDestroy  = event.NewTopic[DestroyPayload](event.FormDestroy)

	TopicFieldChange     = event.NewTopic[ChangeEvent](event.FieldChange)
	TopicFieldValidate   = event.NewTopic[FieldValidatePayload](event.FieldValidate)
	TopicFieldTouch      = event.NewTopic[FieldPayload](event.FieldTouch)
	TopicFieldRegister   = event.NewTopic[FieldPayload](event.FieldRegister)
	TopicFieldUnregister = event.NewTopic[FieldPayload](event.FieldUnregister)
	TopicFieldDestroy    = event.NewTopic[FieldPayload](event.FieldDestroy)
)
