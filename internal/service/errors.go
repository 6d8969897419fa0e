package service

import "errors"

var (
	ErrFollowSelf         = errors.New("cannot follow self")
	ErrForbidden          = errors.New("not the owner of this resource")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email or username already registered")
	ErrInvalidInput       = errors.New("invalid input")
)
