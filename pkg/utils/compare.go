package utils

import (
	"github.com/nats-io/nats.go"
)

// StreamConfigEqual compares the stream config fields this service manages.
func StreamConfigEqual(a, b nats.StreamConfig) bool {
	isCfgSame := a.Name == b.Name &&
		a.Retention == b.Retention &&
		a.MaxMsgs == b.MaxMsgs &&
		a.MaxAge == b.MaxAge &&
		a.Storage == b.Storage

	isSubjectsSame := func() bool {
		if len(a.Subjects) != len(b.Subjects) {
			return false
		}
		for i, subject := range a.Subjects {
			if subject != b.Subjects[i] {
				return false
			}
		}
		return true
	}

	return isCfgSame && isSubjectsSame()
}
