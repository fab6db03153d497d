package model

import (
	"strconv"
	"time"
)

const DefaultTimeoutSeconds = 1200

// Timeout bounds the grading call. The zero value is unbounded.
type Timeout struct {
	Seconds int
	Limited bool
}

func NoTimeout() Timeout {
	return Timeout{}
}

func TimeoutSeconds(seconds int) Timeout {
	return Timeout{Seconds: seconds, Limited: true}
}

func DefaultTimeout() Timeout {
	return TimeoutSeconds(DefaultTimeoutSeconds)
}

func (t Timeout) Duration() (time.Duration, bool) {
	if !t.Limited {
		return 0, false
	}
	return time.Duration(t.Seconds) * time.Second, true
}

func (t Timeout) String() string {
	if !t.Limited {
		return "none"
	}
	return strconv.Itoa(t.Seconds) + "s"
}
