package errors

// User-facing messages, one per failure class.
const (
	MsgRateLimited  = "The image service is busy right now. Please try again shortly."
	MsgInvalidInput = "The request was rejected. Please check your input and try again."
	MsgNoResult     = "The cover could not be refined. Try a different instruction."
	MsgBusy         = "Another cover operation is still running for this project."
	MsgGeneric      = "Something went wrong while working on the cover. Please try again."
)

// UserMessage converts any error into the message shown to the user.
// Validation and not-found errors carry their own message; every other
// class maps to a fixed sentence so backend details never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch CodeOf(err) {
	case CodeRateLimited:
		return MsgRateLimited
	case CodeInvalidInput:
		return MsgInvalidInput
	case CodeNoResult:
		return MsgNoResult
	case CodeBusy:
		return MsgBusy
	case CodeValidation, CodeNotFound, CodeConflict:
		var domainErr *Error
		if As(err, &domainErr) {
			return domainErr.Message
		}
		return MsgGeneric
	default:
		return MsgGeneric
	}
}
