package repository

import (
	"errors"
	"fmt"
)

// ErrInvoiceExists is returned by Create when the invoice id is already stored.
var ErrInvoiceExists = errors.New("invoice already exists")

// StorageError wraps every persistence failure surfaced by this package.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
