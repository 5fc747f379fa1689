package cycle

import "errors"

// ErrAlreadyCommitted is returned when trying to add actions or commit
// after the cycle has already been committed.
var ErrAlreadyCommitted = errors.New("cycle already committed")
