package ids

import "github.com/segmentio/ksuid"

// New returns a new K-sortable unique id for entities and sessions.
func New() string {
	return ksuid.New().String()
}
