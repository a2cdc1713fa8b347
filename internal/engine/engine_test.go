package engine

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edtrack/exercise-xapi/internal/encoder"
	"github.com/edtrack/exercise-xapi/internal/launch"
	"github.com/edtrack/exercise-xapi/internal/session"
	"github.com/edtrack/exercise-xapi/internal/widget"
	"github.com/edtrack/exercise-xapi/internal/xapi"
)

type fakeSender struct {
	mu         sync.Mutex
	statements []xapi.Statement
}

func (f *fakeSender) Send(_ context.Context, st xapi.Statement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statements = append(f.statements, st)
}

func (f *fakeSender) all() []xapi.Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]xapi.Statement(nil), f.statements...)
}

func testConfig() launch.Config {
	return launch.Config{
		Endpoint:     "https://lrs.example.org/xapi",
		AuthToken:    "dGVzdDp0ZXN0",
		Actor:        xapi.Actor{Name: "learner", Mbox: "mailto:learner@example.org"},
		Registration: "reg-123",
		Platform:     "test-host",
		Language:     "en",
		Activity: xapi.Object{
			ID:         "https://example.org/exercises/fractions",
			ObjectType: "Activity",
			Definition: xapi.Definition{
				Name: map[string]string{"en": "Fractions"},
				Type: xapi.ActivityTypeModule,
			},
		},
	}
}

func newTestEngine(sender *fakeSender) *Engine {
	return New(testConfig(), sender, Options{})
}

func radioWidget(t *testing.T, key string) widget.Widget {
	t.Helper()
	opts, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"content": "A", "correct": true},
			{"content": "B"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return widget.Widget{Key: key, Type: "radio", Options: opts}
}

func matcherWidget(t *testing.T, key string) widget.Widget {
	t.Helper()
	opts, err := json.Marshal(map[string]any{
		"left":  []string{"Dog", "Cat"},
		"right": []string{"Bark", "Meow"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return widget.Widget{Key: key, Type: "matcher", Options: opts}
}

func TestStartSendsAttemptedOnce(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	ctx := context.Background()

	eng.Start(ctx)
	eng.Start(ctx)

	got := sender.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(got))
	}
	st := got[0]
	if st.Verb.ID != xapi.VerbAttempted.ID {
		t.Fatalf("verb: %q", st.Verb.ID)
	}
	if st.Object.ID != "https://example.org/exercises/fractions" {
		t.Fatalf("object: %q", st.Object.ID)
	}
	if st.ID == "" {
		t.Fatal("statement id must be set")
	}
	if st.Context == nil || st.Context.Registration != "reg-123" || st.Context.Platform != "test-host" {
		t.Fatalf("context: %+v", st.Context)
	}
	if st.Result != nil {
		t.Fatal("attempted statement carries no result")
	}
}

func TestAnswerCheckedSendsAnsweredStatement(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	eng.OnItemChanged(widget.Item{
		Content: "Pick A",
		Widgets: []widget.Widget{radioWidget(t, "w1")},
	}, 0, 10)

	if err := eng.OnAnswerChecked(context.Background(), session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("OnAnswerChecked: %v", err)
	}

	got := sender.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(got))
	}
	st := got[0]
	if st.Verb.ID != xapi.VerbAnswered.ID {
		t.Fatalf("verb: %q", st.Verb.ID)
	}
	if st.Object.ID != "https://example.org/exercises/fractions/question-1" {
		t.Fatalf("object id: %q", st.Object.ID)
	}
	if st.Result == nil || st.Result.Success == nil || !*st.Result.Success {
		t.Fatalf("result: %+v", st.Result)
	}
	if st.Result.Response != "choice1" {
		t.Fatalf("response: %q", st.Result.Response)
	}
	if st.Context == nil || st.Context.ContextActivities == nil {
		t.Fatal("question statements must carry context activities")
	}
	parent := st.Context.ContextActivities.Parent
	if len(parent) != 1 || parent[0].ID != "https://example.org/exercises/fractions" {
		t.Fatalf("parent: %+v", parent)
	}
}

func TestAnswerCheckedIsIdempotentPerQuestion(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	eng.OnItemChanged(widget.Item{Widgets: []widget.Widget{radioWidget(t, "w1")}}, 0, 10)
	ctx := context.Background()

	if err := eng.OnAnswerChecked(ctx, session.OutcomeIncorrect, nil); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	if got := sender.all(); len(got) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(got))
	}
	stats := eng.Snapshot()
	if stats.Correct != 0 || stats.Incorrect != 1 {
		t.Fatalf("counts after duplicate: %+v", stats)
	}
}

func TestAnswerCheckedIgnoresIncompleteAndReset(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	eng.OnItemChanged(widget.Item{Widgets: []widget.Widget{radioWidget(t, "w1")}}, 0, 10)
	ctx := context.Background()

	for _, o := range []session.Outcome{session.OutcomeIncomplete, session.OutcomeReset} {
		if err := eng.OnAnswerChecked(ctx, o, nil); err != nil {
			t.Fatalf("outcome %q: %v", o, err)
		}
	}
	if got := sender.all(); len(got) != 0 {
		t.Fatalf("expected no statements, got %d", len(got))
	}
}

func TestAnswerCheckedSplitsSiblingsWithGroupingContext(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	eng.OnItemChanged(widget.Item{
		Widgets: []widget.Widget{radioWidget(t, "w1"), matcherWidget(t, "w2")},
	}, 2, 10)

	if err := eng.OnAnswerChecked(context.Background(), session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("OnAnswerChecked: %v", err)
	}

	got := sender.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(got))
	}
	wantIDs := []string{
		"https://example.org/exercises/fractions/question-3a",
		"https://example.org/exercises/fractions/question-3b",
	}
	for i, st := range got {
		if st.Object.ID != wantIDs[i] {
			t.Fatalf("statement %d object: got %q, want %q", i, st.Object.ID, wantIDs[i])
		}
		grouping := st.Context.ContextActivities.Grouping
		ids := make([]string, len(grouping))
		for j, g := range grouping {
			ids[j] = g.ID
		}
		joined := strings.Join(ids, " ")
		for _, want := range wantIDs {
			if !strings.Contains(joined, want) {
				t.Fatalf("statement %d grouping %v missing %q", i, ids, want)
			}
		}
	}
}

func TestAnswerCheckedDropsDefaultBucketWhenScoredExists(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	eng.OnItemChanged(widget.Item{
		Widgets: []widget.Widget{
			{Key: "img", Type: "image"},
			radioWidget(t, "w1"),
		},
	}, 0, 10)

	if err := eng.OnAnswerChecked(context.Background(), session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("OnAnswerChecked: %v", err)
	}
	got := sender.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(got))
	}
	if got[0].Object.ID != "https://example.org/exercises/fractions/question-1" {
		t.Fatalf("object id: %q", got[0].Object.ID)
	}
}

func TestAnswerCheckedUnsupportedOnlyQuestion(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	eng.OnItemChanged(widget.Item{
		Widgets: []widget.Widget{{Key: "img", Type: "image"}, {Key: "vid", Type: "video"}},
	}, 0, 10)

	if err := eng.OnAnswerChecked(context.Background(), session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("OnAnswerChecked: %v", err)
	}
	got := sender.all()
	if len(got) != 1 {
		t.Fatalf("expected exactly one minimal statement, got %d", len(got))
	}
	st := got[0]
	if st.Object.Definition.InteractionType != "" || len(st.Object.Definition.CorrectResponsesPattern) != 0 {
		t.Fatalf("minimal statement should carry no interaction data: %+v", st.Object.Definition)
	}
	if st.Result == nil || st.Result.Response != "" {
		t.Fatalf("minimal statement result: %+v", st.Result)
	}
}

func TestCompletionFiresOnLastQuestion(t *testing.T) {
	sender := &fakeSender{}
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start
	eng := New(testConfig(), sender, Options{Clock: func() time.Time { return now }})
	ctx := context.Background()

	for q := 0; q < 3; q++ {
		eng.OnItemChanged(widget.Item{Widgets: []widget.Widget{radioWidget(t, "w1")}}, q, 3)
		now = now.Add(30 * time.Second)
		outcome := session.OutcomeCorrect
		if q == 1 {
			outcome = session.OutcomeIncorrect
		}
		if err := eng.OnAnswerChecked(ctx, outcome, nil); err != nil {
			t.Fatalf("question %d: %v", q, err)
		}
	}

	got := sender.all()
	if len(got) != 4 {
		t.Fatalf("expected 3 answered + 1 completed, got %d", len(got))
	}
	last := got[3]
	if last.Verb.ID != xapi.VerbCompleted.ID {
		t.Fatalf("verb: %q", last.Verb.ID)
	}
	if last.Object.ID != "https://example.org/exercises/fractions" {
		t.Fatalf("object: %q", last.Object.ID)
	}
	res := last.Result
	if res == nil || res.Score == nil {
		t.Fatalf("completed result: %+v", res)
	}
	if res.Score.Raw != 2 || res.Score.Max != 3 || res.Score.Min != 0 {
		t.Fatalf("score: %+v", res.Score)
	}
	if res.Score.Scaled < 0.66 || res.Score.Scaled > 0.67 {
		t.Fatalf("scaled: %v", res.Score.Scaled)
	}
	if res.Success == nil || !*res.Success {
		t.Fatal("2/3 should pass the default grade")
	}
	if res.Completion == nil || !*res.Completion {
		t.Fatal("completion flag must be true")
	}
}

func TestCompletionFiresOnlyOnce(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	ctx := context.Background()

	eng.OnItemChanged(widget.Item{Widgets: []widget.Widget{radioWidget(t, "w1")}}, 0, 1)
	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err != nil {
		t.Fatal(err)
	}
	// Revisiting the last question must not produce a second completion.
	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err != nil {
		t.Fatal(err)
	}

	completed := 0
	for _, st := range sender.all() {
		if st.Verb.ID == xapi.VerbCompleted.ID {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("expected 1 completed statement, got %d", completed)
	}
}

func TestAnswerCheckedEncoderFailureKeepsAttempt(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	// A radio widget with no options cannot build an object.
	eng.OnItemChanged(widget.Item{
		Widgets: []widget.Widget{{Key: "w1", Type: "radio"}},
	}, 0, 10)
	ctx := context.Background()

	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err == nil {
		t.Fatal("expected an encoder error")
	}
	if got := sender.all(); len(got) != 0 {
		t.Fatalf("expected no statements, got %d", len(got))
	}
	// The attempt stays recorded: the next signal is a duplicate.
	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("duplicate after failure: %v", err)
	}
	stats := eng.Snapshot()
	if stats.Correct != 1 {
		t.Fatalf("counts: %+v", stats)
	}
}

func TestCompletionSentWhenLastQuestionEncodeFails(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	ctx := context.Background()

	eng.OnItemChanged(widget.Item{Widgets: []widget.Widget{radioWidget(t, "w1")}}, 0, 2)
	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("first question: %v", err)
	}

	// The last question's widget is unencodable; its statement is lost but
	// the session still finishes.
	eng.OnItemChanged(widget.Item{Widgets: []widget.Widget{{Key: "w2", Type: "radio"}}}, 1, 2)
	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err == nil {
		t.Fatal("expected an encoder error")
	}
	// A repeat signal is a duplicate and must not complete a second time.
	if err := eng.OnAnswerChecked(ctx, session.OutcomeCorrect, nil); err != nil {
		t.Fatalf("repeat signal: %v", err)
	}

	var completed []xapi.Statement
	for _, st := range sender.all() {
		if st.Verb.ID == xapi.VerbCompleted.ID {
			completed = append(completed, st)
		}
	}
	if len(completed) != 1 {
		t.Fatalf("completed statements: %d", len(completed))
	}
	score := completed[0].Result.Score
	if score == nil || score.Raw != 2 || score.Max != 2 {
		t.Fatalf("score: %+v", score)
	}
}

func TestAnswerCheckedFailureResponseThreadsInput(t *testing.T) {
	sender := &fakeSender{}
	eng := newTestEngine(sender)
	eng.OnItemChanged(widget.Item{Widgets: []widget.Widget{radioWidget(t, "w1")}}, 0, 10)

	raw, err := json.Marshal(map[string]any{"current": []string{"B"}})
	if err != nil {
		t.Fatal(err)
	}
	in := encoder.Input{"w1": raw}
	if err := eng.OnAnswerChecked(context.Background(), session.OutcomeIncorrect, in); err != nil {
		t.Fatalf("OnAnswerChecked: %v", err)
	}
	got := sender.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(got))
	}
	if got[0].Result.Response != "choice2" {
		t.Fatalf("response: %q", got[0].Result.Response)
	}
}
