package session

import "errors"

var (
	ErrAddressRequired  = errors.New("session: address required")
	ErrMalformedLength  = errors.New("session: declared length below minimum")
	ErrPacketTooLarge   = errors.New("session: declared length exceeds limit")
	ErrMalformedPacket  = errors.New("session: malformed packet")
	ErrAuthRejected     = errors.New("session: authentication rejected")
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrUnexpectedPacket = errors.New("session: unexpected packet")
	ErrClosed           = errors.New("session: connection closed")
)
