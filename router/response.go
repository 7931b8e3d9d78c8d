package router

import "net/http"

// Status is the closed set of outcome codes carried in every response body.
type Status int

const (
	Warning Status = 100
	Success Status = 200
	Error   Status = 500
)

func (s Status) String() string {
	switch s {
	case Warning:
		return "warning"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Response is what a handler (or a failed guard) returns. ServeHTTP writes
// it as {"status": ..., "message": ..., "data": ...} with Code as the HTTP
// status.
type Response struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Code    int    `json:"-"`

	// Cookies are set on the response before the body is written.
	Cookies []*http.Cookie `json:"-"`
}

// WithCookie returns a copy of r that also sets c.
func (r Response) WithCookie(c *http.Cookie) Response {
	r.Cookies = append(append([]*http.Cookie(nil), r.Cookies...), c)
	return r
}

// OK returns a successful response carrying data.
func OK(data any) Response {
	return Response{Status: Success, Data: data, Code: http.StatusOK}
}

// Warn returns a warning response. The request succeeded but the user
// should be told something, e.g. a board with no cards.
func Warn(message string) Response {
	return Response{Status: Warning, Message: message, Code: http.StatusOK}
}

// Fail returns an error response with the given user-facing message.
func Fail(message string) Response {
	return Response{Status: Error, Message: message, Code: http.StatusInternalServerError}
}

// JSON returns a response with every field set explicitly.
func JSON(code int, status Status, message string, data any) Response {
	return Response{Status: status, Message: message, Data: data, Code: code}
}

var (
	notFound         = JSON(http.StatusNotFound, Error, "404 Not Found", nil)
	methodNotAllowed = JSON(http.StatusMethodNotAllowed, Error, "405 Method Not Allowed", nil)
	unauthorized     = JSON(http.StatusUnauthorized, Error, "You are not logged.", nil)
)

func missingParam(name string) Response {
	return JSON(http.StatusBadRequest, Error, "Missing field: "+name+".", nil)
}
