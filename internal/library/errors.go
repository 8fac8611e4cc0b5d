package library

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/pkg/errors"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	// ErrUnconfirmed is returned in strict mode when a page write cannot be verified.
	ErrUnconfirmed = errors.New("progress update could not be confirmed")
)

// SchemaError reports a record that does not follow the canonical wire schema.
type SchemaError struct {
	Entity  string
	Missing []string // Canonical fields that are absent
	Legacy  []string // Non-canonical fields found instead
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%s record is missing %s", e.Entity, strings.Join(e.Missing, ", "))
	if len(e.Legacy) > 0 {
		msg += fmt.Sprintf(" (found legacy fields %s)", strings.Join(e.Legacy, ", "))
	}
	return msg
}

// notAuthenticated folds the token provider's failures into ErrNotAuthenticated.
func notAuthenticated(err error) error {
	switch {
	case errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrNoUserID),
		errors.Is(err, auth.ErrNoRefreshToken),
		errors.Is(err, auth.ErrRefreshRejected):
		return errors.Wrap(ErrNotAuthenticated, err.Error())
	}
	return err
}

// invalidInput turns validator output into ErrInvalidInput naming the fields.
func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return errors.Wrapf(ErrInvalidInput, "%s", strings.Join(fields, ", "))
}
