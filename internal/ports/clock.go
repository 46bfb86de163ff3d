package ports

import "time"

// Clock supplies the current time, abstracted so the daily trade limit and
// record timestamps are testable.
type Clock interface {
	Now() time.Time
}
