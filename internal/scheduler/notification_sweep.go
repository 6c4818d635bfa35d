package scheduler

import (
	"context"
)

// Triggerable is woken by the sweep
type Triggerable interface {
	Trigger()
}

// NotificationSweepJob wakes the notification dispatcher so retries and rows
// recorded while it was down are delivered
type NotificationSweepJob struct {
	dispatcher Triggerable
}

// NewNotificationSweepJob creates a new NotificationSweepJob
func NewNotificationSweepJob(dispatcher Triggerable) *NotificationSweepJob {
	return &NotificationSweepJob{dispatcher: dispatcher}
}

// Name returns the job name
func (j *NotificationSweepJob) Name() string {
	return "notification_sweep"
}

// Run triggers the dispatcher without waiting for delivery
func (j *NotificationSweepJob) Run(_ context.Context) error {
	j.dispatcher.Trigger()
	return nil
}
