package translator

import (
	"errors"
	"strings"
)

var ErrDisabled = errors.New("translation disabled")

const (
	verifyHint   = "Verify the translation service URL or disable translation in Settings if the issue persists."
	verifyPrefix = "verify the translation service url"
)

// UserMessage renders a translation failure for display.
func UserMessage(err error, realtime bool) string {
	prefix := "Translation unavailable."
	if realtime {
		prefix = "Real-time translation unavailable."
	}

	msg := prefix
	if detail := errorDetail(err); detail != "" {
		msg += " " + detail
	}
	if !strings.Contains(strings.ToLower(msg), verifyPrefix) {
		msg += " " + verifyHint
	}
	return strings.TrimSpace(msg)
}

func errorDetail(err error) string {
	if err == nil {
		return "An unexpected error occurred."
	}
	msg := strings.TrimSpace(err.Error())
	if inner := errors.Unwrap(err); inner != nil {
		innerMsg := strings.TrimSpace(inner.Error())
		if innerMsg != "" && !strings.Contains(msg, innerMsg) {
			if msg == "" {
				msg = innerMsg
			} else {
				msg += " (" + innerMsg + ")"
			}
		}
	}
	if msg == "" {
		return "An unexpected error occurred."
	}
	return msg
}
