package bench

import "time"

// refreshMsg polls the lab for a newer snapshot and the hint service for a
// finished hint.
type refreshMsg time.Time
