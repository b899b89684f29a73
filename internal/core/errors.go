package core

import "errors"

var (
	// ErrEmptyName is returned for a blank display name.
	ErrEmptyName = errors.New("empty name")
	// ErrInvalidName is returned for names that are too long or not alphanumeric.
	ErrInvalidName = errors.New("invalid name")
	// ErrNameTaken is returned when another client already holds the name.
	ErrNameTaken = errors.New("name already taken")
	// ErrAlreadyNamed is returned when a client claims a second name.
	ErrAlreadyNamed = errors.New("client already named")
	// ErrNotRegistered is returned for operations on clients that never claimed a name.
	ErrNotRegistered = errors.New("client not registered")
	// ErrInvalidRoom is returned for room names that are not alphanumeric.
	ErrInvalidRoom = errors.New("invalid room name")
)
