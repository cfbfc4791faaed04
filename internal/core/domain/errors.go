package domain

import "errors"

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrNotAdmin = errors.New("only admins can perform this operation")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("username already taken")
var ErrInvalidBirthdate = errors.New("invalid birthdate")
var ErrInvalidGender = errors.New("invalid gender")
