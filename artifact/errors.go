package artifact

import "errors"

// ErrArtifactNotFound is returned when the requested artifact or version does
// not exist.
var ErrArtifactNotFound = errors.New("artifact not found")
