package api

import "github.com/saqibsattar03/basecamp-server/api/validator"

type (
	Validator       = validator.Validator
	ValidationError = validator.ValidationError
)
