package alerts

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler is the downstream timeline/escalation scheduler this
// service notifies after a report commits. Dispatch is fire-and-forget:
// the scheduler owns its own retry and backoff policy.
type Scheduler interface {
	Schedule(ctx context.Context, reportID, organizationID string, createdAt time.Time) error
}

// FailureObserver sees the outcome of every dispatch attempt. The
// default observer logs; tests inject their own to assert a dispatch
// was attempted without coupling submission success to its outcome.
type FailureObserver interface {
	ScheduleAttempted(reportID string, err error)
}

// LogObserver reports dispatch outcomes to the log and nowhere else.
type LogObserver struct{}

// ScheduleAttempted logs the outcome of one dispatch.
func (LogObserver) ScheduleAttempted(reportID string, err error) {
	if err != nil {
		logrus.Errorf("Alert scheduling failed for report %s: %v", reportID, err)
		return
	}
	logrus.Infof("Alert scheduling dispatched for report %s", reportID)
}
