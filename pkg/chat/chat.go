// Package chat holds the conversation and message model shared by the
// widget and the inbox, and the Timeline both use to hold optimistic sends.
package chat

import "errors"

// ErrInvalidSenderType is returned when a payload names an unknown sender
var ErrInvalidSenderType = errors.New("invalid sender type")
