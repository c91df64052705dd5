package services

import (
	"errors"
	"fmt"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrNoContent    = errors.New("no content")
	ErrSamePlatform = errors.New("source and destination platform are the same")
	ErrInvalidInput = errors.New("invalid input")
)

// notFound translates a store miss into ErrNotFound, leaving other errors as they are
func notFound(err error, what string) error {
	if repository.IsNotFound(err) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
