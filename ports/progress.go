package ports

// ProgressReporter receives live feedback from a sampling run. It is a
// pure observer: nothing it does flows back into the control loop.
// Totals are revised as the adaptive estimate changes and may move in
// either direction.
type ProgressReporter interface {
	// SetTotal revises the estimated total number of iterations.
	SetTotal(total int)

	// SetPhase labels the work currently being done ("Burning in",
	// "Sampling", "Checking").
	SetPhase(phase string)

	// Step records one completed iteration.
	Step()

	// Annotate attaches diagnostic key/value pairs, typically the
	// autocorrelation length and acceptance fraction after a check.
	Annotate(fields map[string]float64)

	// Finish marks the run as complete.
	Finish()
}
