package store

import (
	"errors"

	"github.com/foliolab/folio-backend/internal/model"
)

func isNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }
