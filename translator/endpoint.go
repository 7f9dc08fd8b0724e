package translator

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultEndpoint = "https://translate.argosopentech.com/translate"

type EndpointStatus int

const (
	EndpointDisabled EndpointStatus = iota
	EndpointConfigured
	EndpointInvalid
)

const (
	DisabledHint = "Translation disabled. Provide a translation service URL in Settings to enable it."
	InvalidHint  = "Translation disabled until a valid service URL is saved."
)

func (s EndpointStatus) String() string {
	switch s {
	case EndpointDisabled:
		return "disabled"
	case EndpointConfigured:
		return "configured"
	case EndpointInvalid:
		return "invalid"
	}
	return fmt.Sprintf("EndpointStatus(%d)", int(s))
}

// Hint is the text shown in place of a translation when none will be made.
func (s EndpointStatus) Hint() string {
	switch s {
	case EndpointDisabled:
		return DisabledHint
	case EndpointInvalid:
		return InvalidHint
	}
	return ""
}

// CompletionStatus is the status line shown after a session that was not
// translated because of s.
func (s EndpointStatus) CompletionStatus() string {
	if s == EndpointInvalid {
		return "Completed (translation disabled: invalid translation URL)."
	}
	return "Completed (translation disabled)."
}

// ParseEndpoint classifies a configured translation URL. Blank disables
// translation; anything other than an absolute http or https URL is invalid.
func ParseEndpoint(raw string) (*url.URL, EndpointStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, EndpointDisabled, nil
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, EndpointInvalid, fmt.Errorf("translation service URL %q must start with http:// or https:// and be a valid absolute URL", raw)
	}
	return u, EndpointConfigured, nil
}
