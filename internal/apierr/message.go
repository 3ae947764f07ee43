package apierr

import "errors"

// UserMessage returns the text shown to a user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindInvalidCode:
		return "The code is invalid or has expired. Request a new code from the bot."
	case KindUnauthorized:
		return "Your session has expired. Please sign in again."
	case KindForbidden:
		return "You are not permitted to do that."
	case KindNotFound:
		return "It no longer exists. Refresh to see the current state."
	case KindConflict:
		return "This request was already handled or the team has changed. Refresh to see the current state."
	case KindValidation:
		if msg := detail(err); msg != "" {
			return msg
		}
		return "Some of the entered data is invalid."
	case KindPolicy:
		if msg := detail(err); msg != "" {
			return msg
		}
		return "This action is not available."
	default:
		return "Something went wrong talking to the server. Please try again."
	}
}

func detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
