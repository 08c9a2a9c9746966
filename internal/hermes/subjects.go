package hermes

const (
	SubjectFitRequest = "reidentify.fit.request"
	SubjectStats      = "reidentify.stats"

	StreamName   = "REIDENTIFY_EVENTS"
	StreamMaxAge = "168h" // 7 days
)

// StreamSubjects are captured by the JetStream stream.
var StreamSubjects = []string{"reidentify.fit.>", SubjectStats}

func SubjectFitQueued(runID string) string    { return "reidentify.fit." + runID + ".queued" }
func SubjectFitStarted(runID string) string   { return "reidentify.fit." + runID + ".started" }
func SubjectFitCompleted(runID string) string { return "reidentify.fit." + runID + ".completed" }
func SubjectFitFailed(runID string) string    { return "reidentify.fit." + runID + ".failed" }
func SubjectFitTimeout(runID string) string   { return "reidentify.fit." + runID + ".timeout" }
