package validator

import "time"

// Result codes produced by the executor itself rather than a validator.
const (
	// CodeNotFound marks a rule whose named validator is not registered.
	CodeNotFound = "VALIDATOR_NOT_FOUND"

	// CodeError marks a rule whose validator returned an error or panicked.
	CodeError = "VALIDATION_ERROR"
)

// Result is the outcome of one validation. Message and Code are only
// meaningful when Valid is false.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Pass returns a valid result.
func Pass() Result {
	return Result{Valid: true}
}

// Fail returns an invalid result with the given code and message.
func Fail(code, message string) Result {
	return Result{Code: code, Message: message}
}

// ExtendedResult is a Result annotated with how it was produced.
type ExtendedResult struct {
	Result

	// Validator is the rule's validator name.
	Validator string `json:"validator"`

	// Params are the rule params the validator ran with.
	Params Params `json:"params,omitempty"`

	// Duration is how long the validator took.
	Duration time.Duration `json:"duration"`

	// Timestamp is when the validator was invoked.
	Timestamp time.Time `json:"timestamp"`

	// Skipped is set when the rule's When condition was false.
	Skipped bool `json:"skipped,omitempty"`
}

// Merge folds rule results into one result. It is valid only if every
// result is valid; Message and Code come from the first failing result
// in list order. Data holds every result.
func Merge(results []ExtendedResult) Result {
	merged := Result{Valid: true}
	for _, r := range results {
		if !r.Valid && merged.Valid {
			merged.Valid = false
			merged.Message = r.Message
			merged.Code = r.Code
		}
	}
	if len(results) > 0 {
		data := make([]ExtendedResult, len(results))
		copy(data, results)
		merged.Data = data
	}
	return merged
}
