package repo

import (
	"errors"
	"fmt"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	ErrorUsernameTaken = fmt.Errorf("%w: username already exists", ErrorConflict)
	ErrorEmailTaken    = fmt.Errorf("%w: email already exists", ErrorConflict)
)
