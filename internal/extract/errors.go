package extract

import "fmt"

// PathNotFoundError reports that a structural assumption about the upstream
// document no longer holds: a selector matched nothing, a JSON key is missing
// or a feed has no entries. Key names the first segment that was not found.
type PathNotFoundError struct {
	Path string
	Key  string
}

func (e *PathNotFoundError) Error() string {
	if e.Path == e.Key || e.Path == "" {
		return fmt.Sprintf("extraction path not found: %q", e.Key)
	}
	return fmt.Sprintf("extraction path not found: missing %q in %q", e.Key, e.Path)
}

// PartialError is a soft warning returned alongside candidates when some
// entries had to be dropped.
type PartialError struct {
	Skipped int
	Reason  string
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("skipped %d entries: %s", e.Skipped, e.Reason)
}
