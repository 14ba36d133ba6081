package capture

import "time"

func OverloadSleep(f func(time.Duration)) func() {
	ref := sleep
	sleep = f
	return func() { sleep = ref }
}

func OverloadNow(f func() time.Time) func() {
	ref := now
	now = f
	return func() { now = ref }
}
