package repository

import "errors"

// ErrNoRows is returned when a requested row does not exist. The service layer
// maps it onto its own NotFound/AccessDenied taxonomy.
var ErrNoRows = errors.New("repository: no rows found")
