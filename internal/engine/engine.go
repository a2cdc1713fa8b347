// Package engine turns renderer signals into xAPI statements. One Engine
// serves one launched session; any number of engines can run in a process.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edtrack/exercise-xapi/internal/encoder"
	"github.com/edtrack/exercise-xapi/internal/launch"
	"github.com/edtrack/exercise-xapi/internal/session"
	"github.com/edtrack/exercise-xapi/internal/transport"
	"github.com/edtrack/exercise-xapi/internal/widget"
	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// Engine implements the renderer subscription contract: the host calls
// OnItemChanged when the current question changes and OnAnswerChecked when an
// answer outcome is known. The engine never reaches into the renderer; all
// state it needs arrives through these two calls.
type Engine struct {
	cfg     launch.Config
	tracker *session.Tracker
	grouper *widget.Grouper
	sender  transport.Sender
	log     *zap.Logger

	mu               sync.Mutex
	item             widget.Item
	questionIndex    int
	maxQuestionIndex int
	started          bool
}

// Options tune engine construction.
type Options struct {
	PassingGrade float64 // percent; 0 means the default of 50
	Clock        func() time.Time
	Logger       *zap.Logger
}

const defaultPassingGrade = 50

func New(cfg launch.Config, sender transport.Sender, opts Options) *Engine {
	if opts.PassingGrade <= 0 {
		opts.PassingGrade = defaultPassingGrade
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		tracker: session.NewTracker(opts.PassingGrade, opts.Clock),
		grouper: widget.NewGrouper(opts.Logger),
		sender:  sender,
		log:     opts.Logger,
	}
}

// Start reports the exercise as attempted. It is idempotent for the session.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	st := createStatement(e.cfg.Actor, xapi.VerbAttempted, e.cfg.Activity, nil, e.exerciseContext())
	e.sender.Send(ctx, st)
}

// OnItemChanged records the renderer's current question. maxQuestionIndex is
// the total question count for the exercise.
func (e *Engine) OnItemChanged(item widget.Item, questionIndex, maxQuestionIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.item = item
	e.questionIndex = questionIndex
	e.maxQuestionIndex = maxQuestionIndex
}

// OnAnswerChecked processes one answer-checked signal. The duplicate gate runs
// synchronously before any statement work, so a second signal for the same
// question can never double-count, even while a send is still in flight.
//
// An encoder failure aborts statement generation for the question but the
// attempt is already recorded; the session keeps counting and completion is
// still reported when the failing question was the last one.
func (e *Engine) OnAnswerChecked(ctx context.Context, outcome session.Outcome, input encoder.Input) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.tracker.RecordAnswer(e.questionIndex, outcome) {
	case session.DecisionIgnore:
		return nil
	case session.DecisionDuplicate:
		e.log.Debug("duplicate answer event ignored", zap.Int("question", e.questionIndex))
		return nil
	}

	success := outcome == session.OutcomeCorrect
	groups := e.grouper.Partition(e.item.Widgets)
	subs := splitQuestion(groups, e.questionIndex)

	var encodeErr error
	for _, sub := range subs {
		if err := e.sendAnswered(ctx, sub, input, success); err != nil {
			encodeErr = fmt.Errorf("question %s: %w", sub.Label, err)
			break
		}
	}

	if comp, done := e.tracker.Complete(e.questionIndex, e.maxQuestionIndex); done {
		e.sendCompleted(ctx, comp)
	}
	return encodeErr
}

func (e *Engine) sendAnswered(ctx context.Context, sub subQuestion, input encoder.Input, success bool) error {
	enc := encoder.For(sub.Group.Type)
	src := encoder.Source{
		ActivityID: e.questionActivityID(sub.Label),
		Label:      sub.Label,
		Content:    e.item.Content,
		Language:   e.cfg.Language,
		Widgets:    sub.Group.Widgets,
	}
	obj, err := enc.BuildObject(src)
	if err != nil {
		return err
	}
	duration := xapi.FormatDuration(e.tracker.Checkpoint())
	res, err := enc.BuildResult(obj, src, input, success, duration)
	if err != nil {
		return err
	}

	var siblingIDs []string
	for _, label := range sub.Siblings {
		siblingIDs = append(siblingIDs, e.questionActivityID(label))
	}

	st := createStatement(e.cfg.Actor, xapi.VerbAnswered, obj, &res, e.questionContext(siblingIDs))
	e.sender.Send(ctx, st)
	return nil
}

func (e *Engine) sendCompleted(ctx context.Context, comp session.Completion) {
	res := &xapi.Result{
		Success:    xapi.Bool(comp.Success),
		Completion: xapi.Bool(true),
		Duration:   xapi.FormatDuration(e.tracker.Checkpoint()),
		Score: &xapi.Score{
			Scaled: comp.Scaled,
			Raw:    comp.Raw,
			Min:    0,
			Max:    comp.Max,
		},
	}
	st := createStatement(e.cfg.Actor, xapi.VerbCompleted, e.cfg.Activity, res, e.exerciseContext())
	e.sender.Send(ctx, st)
}

func (e *Engine) questionActivityID(label string) string {
	return e.cfg.Activity.ID + "/question-" + label
}

// Completed reports whether the session has emitted its completion statement.
func (e *Engine) Completed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Completed()
}

// Stats is a read-only snapshot for operational endpoints.
type Stats struct {
	Activity      string `json:"activity"`
	QuestionIndex int    `json:"question_index"`
	MaxQuestions  int    `json:"max_questions"`
	Correct       int    `json:"correct"`
	Incorrect     int    `json:"incorrect"`
}

func (e *Engine) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	correct, incorrect := e.tracker.Counts()
	return Stats{
		Activity:      e.cfg.Activity.ID,
		QuestionIndex: e.questionIndex,
		MaxQuestions:  e.maxQuestionIndex,
		Correct:       correct,
		Incorrect:     incorrect,
	}
}
