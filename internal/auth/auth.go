// Package auth checks RCON passwords carried in Auth packets.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates the body of an Auth packet.
type Validator interface {
	Validate(password string) error
}

// StaticPassword accepts exactly one shared password. An empty password
// rejects everything.
type StaticPassword struct {
	Password string
}

func (s StaticPassword) Validate(password string) error {
	if s.Password == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Password), []byte(password)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(password string) error

func (f FuncValidator) Validate(password string) error {
	return f(password)
}

// AnyOf accepts a password if any validator does.
type AnyOf []Validator

func (a AnyOf) Validate(password string) error {
	for _, v := range a {
		if v.Validate(password) == nil {
			return nil
		}
	}
	return ErrUnauthorized
}
