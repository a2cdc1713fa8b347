package session

import "time"

// Outcome is the renderer's answer-checked signal vocabulary.
type Outcome string

const (
	OutcomeCorrect    Outcome = "correct"
	OutcomeIncorrect  Outcome = "incorrect"
	OutcomeIncomplete Outcome = "incomplete" // answer not fully entered yet
	OutcomeReset      Outcome = "reset"      // question cleared, nothing to record
)

// Decision is what the caller should do with an answer-checked signal.
type Decision int

const (
	// DecisionIgnore means the signal carries no attempt (incomplete/reset).
	DecisionIgnore Decision = iota
	// DecisionDuplicate means the question was already scored; send nothing.
	DecisionDuplicate
	// DecisionNewAttempt means this is the first answer for the question;
	// the caller proceeds to build and send statements.
	DecisionNewAttempt
)

// State holds one session's mutable attempt bookkeeping. It is owned by a
// Tracker and mutated only through RecordAnswer, so a process can run any
// number of independent sessions.
type State struct {
	attempted    map[int]bool
	correct      int
	incorrect    int
	started      time.Time
	lastProgress time.Time
	completed    bool
}

// Completion is the aggregate reported in the exercise completion statement.
type Completion struct {
	Scaled  float64
	Raw     float64
	Max     float64
	Success bool
}

// Tracker gates duplicate answer events and accumulates the session score.
// Each question index transitions at most once, on its first correct or
// incorrect signal; every later signal for that index is a duplicate.
type Tracker struct {
	state        State
	passingGrade float64
	now          func() time.Time
}

// NewTracker creates a tracker with the given passing grade (percent). The
// clock is injectable for tests; pass nil for time.Now.
func NewTracker(passingGrade float64, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		state:        State{attempted: map[int]bool{}},
		passingGrade: passingGrade,
		now:          now,
	}
	t.state.started = now()
	t.state.lastProgress = t.state.started
	return t
}

// RecordAnswer applies one answer-checked signal for a question index.
func (t *Tracker) RecordAnswer(questionIndex int, outcome Outcome) Decision {
	switch outcome {
	case OutcomeCorrect, OutcomeIncorrect:
	default:
		return DecisionIgnore
	}
	if t.state.attempted[questionIndex] {
		return DecisionDuplicate
	}
	t.state.attempted[questionIndex] = true
	if outcome == OutcomeCorrect {
		t.state.correct++
	} else {
		t.state.incorrect++
	}
	return DecisionNewAttempt
}

// Attempted reports whether a question index has been scored.
func (t *Tracker) Attempted(questionIndex int) bool { return t.state.attempted[questionIndex] }

// Completed reports whether the completion aggregate has been emitted.
func (t *Tracker) Completed() bool { return t.state.completed }

// Counts returns the correct/incorrect tallies.
func (t *Tracker) Counts() (correct, incorrect int) { return t.state.correct, t.state.incorrect }

// Checkpoint returns the elapsed time since the later of session start and the
// previous checkpoint, and resets the checkpoint.
func (t *Tracker) Checkpoint() time.Duration {
	now := t.now()
	d := now.Sub(t.state.lastProgress)
	t.state.lastProgress = now
	return d
}

// Complete reports the session aggregate once the last question has been
// reached. It fires at most once: the second and later calls return false.
func (t *Tracker) Complete(questionIndex, maxQuestionIndex int) (Completion, bool) {
	if t.state.completed || maxQuestionIndex <= 0 || questionIndex+1 < maxQuestionIndex {
		return Completion{}, false
	}
	t.state.completed = true
	scaled := float64(t.state.correct) / float64(maxQuestionIndex)
	return Completion{
		Scaled:  scaled,
		Raw:     float64(t.state.correct),
		Max:     float64(maxQuestionIndex),
		Success: scaled*100 >= t.passingGrade,
	}, true
}
