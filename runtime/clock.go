package runtime

import (
	"consult-chat/contract"
	"time"
)

// WallClock schedules with the runtime timers.
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) contract.Timer {
	return time.AfterFunc(d, f)
}
