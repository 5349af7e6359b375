package errors

import "errors"

// ErrorInfo holds the user-facing message and suggested action for an error.
type ErrorInfo struct {
	Message string
	Action  string
}

type errorEntry struct {
	err  error
	info ErrorInfo
}

// A slice rather than a map so lookups walk the chain with errors.Is.
var errorInfoEntries = []errorEntry{
	{
		err: ErrInvalidTransition,
		info: ErrorInfo{
			Message: "That status change is not allowed from the commitment's current state.",
			Action:  "Run 'cl commitment show <id>' to check the current status.",
		},
	},
	{
		err: ErrNotificationPending,
		info: ErrorInfo{
			Message: "The stakeholder has not been notified yet.",
			Action:  "Complete the notification task first, or pass --override with a --reason.",
		},
	},
	{
		err: ErrConfirmationRequired,
		info: ErrorInfo{
			Message: "Notification tasks cannot be skipped or removed silently.",
			Action:  "Repeat the command with --confirm.",
		},
	},
	{
		err: ErrNotificationPinned,
		info: ErrorInfo{
			Message: "The stakeholder notification always stays first.",
			Action:  "Move other tasks to position 1 or later.",
		},
	},
	{
		err: ErrValidation,
		info: ErrorInfo{
			Message: "The request is missing required information.",
		},
	},
	{
		err: ErrConfigInvalid,
		info: ErrorInfo{
			Message: "commitline.yml contains an out-of-range scoring parameter.",
			Action:  "Run 'cl config validate' to see which value, or 'cl config init --force' to reset.",
		},
	},
	{
		err: ErrNotFound,
		info: ErrorInfo{
			Message: "The referenced record does not exist.",
			Action:  "Check the id with 'cl commitment list' or 'cl task list'.",
		},
	},
}

// UserMessage returns a friendly description of err, falling back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, e := range errorInfoEntries {
		if errors.Is(err, e.err) {
			return e.info.Message
		}
	}
	return err.Error()
}

// Actionable returns the suggested action for err, or "" when there is none.
func Actionable(err error) string {
	for _, e := range errorInfoEntries {
		if errors.Is(err, e.err) {
			return e.info.Action
		}
	}
	return ""
}
