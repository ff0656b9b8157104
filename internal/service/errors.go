package service

import "errors"

// Login failures.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
	ErrUserInactive  = errors.New("user inactive")
)

// Refresh failures.
var (
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrRefreshInvalid      = errors.New("invalid refresh token")
	ErrRefreshNotFound     = errors.New("refresh token not found")
	ErrRefreshExpired      = errors.New("refresh token expired")
	ErrRefreshUserNotFound = errors.New("refresh token owner not found")
)

// ErrUserExists is returned when provisioning a cedula that is taken.
var ErrUserExists = errors.New("user already exists")
