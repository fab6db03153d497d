package eventsctl

import (
	"context"
)

const CompletedChecksChannel = "checkrunner_completed_checks_channel"

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
