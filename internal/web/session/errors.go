package session

import "errors"

// ErrNoSession is returned when a session id has no stored data.
var ErrNoSession = errors.New("no session data")
