package handler

const (
	// RootPath is the root path of the route group.
	RootPath = "/"

	// SessionCookie is the name of the session cookie.
	SessionCookie = "session"

	// ErrNilACFatalLogMsg is used if app or cfg var pointer is nil.
	ErrNilACFatalLogMsg = "app or cfg is nil"
)
