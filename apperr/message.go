package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Message converts err into a short status line for the user. action is the
// capitalised verb shown to the user ("Save", "Delete", "Upload").
func Message(action string, err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("%s failed. Check the server logs for details.", action)
	}
	switch e.Kind {
	case Validation:
		if e.Msg != "" {
			return sentence(e.Msg)
		}
		return fmt.Sprintf("%s is required.", titleCase(e.Field))
	case Permission:
		if e.Msg != "" {
			return fmt.Sprintf("%s failed. %s", action, sentence(e.Msg))
		}
		return fmt.Sprintf("%s failed. Your account is not allowed to change this post.", action)
	case NotFound:
		return fmt.Sprintf("%s failed. The post no longer exists.", action)
	case Timeout:
		return "Request timed out. The blog server may be slow or unreachable."
	case Network:
		if e.StatusCode != 0 {
			return fmt.Sprintf("%s failed: API returned %d.", action, e.StatusCode)
		}
		return "Could not reach the blog server. Check the network connection and the API URL."
	default:
		if e.Msg != "" {
			return fmt.Sprintf("%s failed. %s", action, sentence(e.Msg))
		}
		return fmt.Sprintf("%s failed. Check the server logs for details.", action)
	}
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return "Field"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
