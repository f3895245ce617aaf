package repository

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/guttosm/campus-access/internal/apperror"
)

var (
	// ErrVersionConflict is returned when a document changed since it was loaded.
	ErrVersionConflict = fmt.Errorf("%w: document version changed", apperror.ErrConflict)
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = fmt.Errorf("%w: duplicate key", apperror.ErrConflict)
	// ErrStateConflict is returned when a conditional state transition finds the document
	// in a different state.
	ErrStateConflict = fmt.Errorf("%w: state changed concurrently", apperror.ErrConflict)
)

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
