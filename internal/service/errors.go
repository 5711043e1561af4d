package service

import (
	"errors"

	"github.com/jaekwang-park/project-board/internal/policy"
	"github.com/jaekwang-park/project-board/internal/validation"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = validation.ErrInvalid
	ErrForbidden    = policy.ErrForbidden
	ErrUnavailable  = errors.New("unavailable")
)
