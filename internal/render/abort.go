package render

import (
	stdErrors "errors"
	"fmt"
)

// AbortError is raised by a page that asks for a redirect or a not-found
// response while rendering. Static rendering cannot honor it.
type AbortError struct {
	// Call is the construct as written, e.g. `redirect("/login")`.
	Call string
	// Caller is the generic name of the construct, e.g. `redirect()`.
	Caller string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s intercepted", e.Call)
}

// IsAbort reports whether err carries an AbortError, looking through
// template execution errors.
func IsAbort(err error) (*AbortError, bool) {
	var ae *AbortError
	if stdErrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func redirect(url string, status ...int) (string, error) {
	call := fmt.Sprintf("redirect(%q)", url)
	if len(status) > 0 {
		call = fmt.Sprintf("redirect(%q, %d)", url, status[0])
	}
	return "", &AbortError{Call: call, Caller: "redirect()"}
}

func notFound() (string, error) {
	return "", &AbortError{Call: "notFound()", Caller: "notFound()"}
}
