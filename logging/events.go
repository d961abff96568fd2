package logging

import (
	"time"
)

// --- Recorder event helpers ---
// Called by the tasks package at each state transition.

// TaskAdmitted logs a launch, revoke or promote that passed admission.
func (l *Logger) TaskAdmitted(op, key string, revision uint64) {
	if !l.Enabled(LevelDebug) {
		return
	}
	l.Debug("task_admitted", map[string]interface{}{
		"op":       op,
		"key":      key,
		"revision": revision,
	})
}

// TaskRejected logs an admission that observed a blocking state.
func (l *Logger) TaskRejected(op, key, observed string) {
	if !l.Enabled(LevelDebug) {
		return
	}
	l.Debug("task_rejected", map[string]interface{}{
		"op":    op,
		"key":   key,
		"state": observed,
	})
}

// TaskSettled logs the outcome recorded after a task or revoke body finished.
// Failures are logged at WARN since the body's error is otherwise only seen
// by blocking callers.
func (l *Logger) TaskSettled(op, key, outcome string, duration time.Duration, err error) {
	if err == nil && !l.Enabled(LevelDebug) {
		return
	}
	fields := map[string]interface{}{
		"op":       op,
		"key":      key,
		"outcome":  outcome,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Warn("task_settled", fields)
		return
	}
	l.Debug("task_settled", fields)
}

// StaleOutcome logs an outcome discarded because the key was overridden
// while the body was running.
func (l *Logger) StaleOutcome(op, key string, admitted, current uint64) {
	l.Warn("stale_outcome", map[string]interface{}{
		"op":                op,
		"key":               key,
		"admitted_revision": admitted,
		"current_revision":  current,
	})
}

// TaskPanic logs a recovered panic from a task or revoke body.
func (l *Logger) TaskPanic(op, key string, value interface{}, stack []byte) {
	l.Error("task_panic", map[string]interface{}{
		"op":    op,
		"key":   key,
		"panic": value,
		"stack": string(stack),
	})
}

// StateForced logs an administrative override.
func (l *Logger) StateForced(key, from, to string) {
	l.Info("state_forced", map[string]interface{}{
		"key":  key,
		"from": from,
		"to":   to,
	})
}
