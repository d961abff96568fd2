// Package shutdown runs teardown steps in ordered phases.
//
// A process that records tasks usually has three things to stop: the feeds
// that admit or observe work, the recorders whose task bodies are still
// running, and the exporters that flush what those bodies traced. Each is a
// Handler registered under a phase. Phases run in ascending order; handlers
// sharing a phase run concurrently.
//
//	coord := shutdown.New(shutdown.DefaultConfig())
//	coord.RegisterFunc("watch", shutdown.PhaseIntake, stopWatch)
//	coord.Register("recorder", shutdown.PhaseDrain, rec) // *tasks.Recorder
//	coord.RegisterFunc("telemetry", shutdown.PhaseFlush, provider.Shutdown)
//
//	if err := coord.ShutdownWithTimeout(); err != nil {
//	    log.Printf("shutdown incomplete: %v", err)
//	}
//
// # Errors
//
// A handler error is wrapped with the handler name and keeps its code. A
// panicking handler is recovered and reported with code PANIC. If the
// context ends before a phase starts, the remaining phases are skipped and
// Shutdown returns a CANCELED error.
//
// Shutdown runs once. Later calls wait for the first and return its error.
package shutdown
