package metrics

import (
	"time"
)

// All helpers are nil-safe so components can run without metrics wired (tests,
// optional configs).

// IncrementTaskCreated records a task creation
func (m *Metrics) IncrementTaskCreated() {
	if m == nil {
		return
	}
	m.TasksCreatedTotal.Inc()
}

// IncrementTaskMoved records a task move
func (m *Metrics) IncrementTaskMoved() {
	if m == nil {
		return
	}
	m.TasksMovedTotal.Inc()
}

// IncrementNotificationCreated records a notification creation by type
func (m *Metrics) IncrementNotificationCreated(notificationType string) {
	if m == nil {
		return
	}
	m.NotificationsCreatedTotal.WithLabelValues(notificationType).Inc()
}

// RecordEventEmitted records a room event emission by type
func (m *Metrics) RecordEventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.EventsEmittedTotal.WithLabelValues(eventType).Inc()
}

// SessionConnected increments the active session gauge
func (m *Metrics) SessionConnected() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionDisconnected decrements the active session gauge
func (m *Metrics) SessionDisconnected() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// SetRoomsActive sets the active room gauge
func (m *Metrics) SetRoomsActive(n int) {
	if m == nil {
		return
	}
	m.RoomsActive.Set(float64(n))
}

// RecordDeadlineScan records the duration of a deadline scan tick
func (m *Metrics) RecordDeadlineScan(duration time.Duration) {
	if m == nil {
		return
	}
	m.DeadlineScanDuration.Observe(duration.Seconds())
}

// IncrementDeadlineScanSkipped records a skipped overlapping tick
func (m *Metrics) IncrementDeadlineScanSkipped() {
	if m == nil {
		return
	}
	m.DeadlineScanSkipped.Inc()
}
