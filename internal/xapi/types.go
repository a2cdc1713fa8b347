package xapi

// ===== Statement models (per xAPI 1.0.3, trimmed to what we send) =====

const (
	Version = "1.0.3"

	ActivityTypeInteraction = "http://adlnet.gov/expapi/activities/cmi.interaction"
	ActivityTypeModule      = "http://adlnet.gov/expapi/activities/module"
)

// Verb ids live under a fixed ADL namespace; display text is the bare verb.
const verbBase = "http://adlnet.gov/expapi/verbs/"

type Verb struct {
	ID      string            `json:"id"`
	Display map[string]string `json:"display,omitempty"`
}

func NewVerb(name string) Verb {
	return Verb{ID: verbBase + name, Display: map[string]string{"en": name}}
}

var (
	VerbAttempted = NewVerb("attempted")
	VerbAnswered  = NewVerb("answered")
	VerbCompleted = NewVerb("completed")
)

type Actor struct {
	Name any    `json:"name,omitempty"` // string or []string, as supplied by the launcher
	Mbox string `json:"mbox,omitempty"`
}

type Definition struct {
	Name                    map[string]string `json:"name,omitempty"`
	Description             map[string]string `json:"description,omitempty"`
	Type                    string            `json:"type,omitempty"`
	InteractionType         string            `json:"interactionType,omitempty"`
	CorrectResponsesPattern []string          `json:"correctResponsesPattern,omitempty"`
	Choices                 []Component       `json:"choices,omitempty"`
	Source                  []Component       `json:"source,omitempty"`
	Target                  []Component       `json:"target,omitempty"`
}

// Component is one interaction component (a choice, source or target entry).
type Component struct {
	ID          string            `json:"id"`
	Description map[string]string `json:"description,omitempty"`
}

type Object struct {
	ID         string     `json:"id"`
	ObjectType string     `json:"objectType,omitempty"`
	Definition Definition `json:"definition"`
}

type Score struct {
	Scaled float64 `json:"scaled"`
	Raw    float64 `json:"raw"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type Result struct {
	Response   string `json:"response,omitempty"`
	Success    *bool  `json:"success,omitempty"`
	Completion *bool  `json:"completion,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Score      *Score `json:"score,omitempty"`
}

type ContextActivities struct {
	Parent   []Object `json:"parent,omitempty"`
	Grouping []Object `json:"grouping,omitempty"`
}

type Context struct {
	Registration      string             `json:"registration,omitempty"`
	Platform          string             `json:"platform,omitempty"`
	Language          string             `json:"language,omitempty"`
	ContextActivities *ContextActivities `json:"contextActivities,omitempty"`
}

type Statement struct {
	ID      string   `json:"id,omitempty"`
	Actor   Actor    `json:"actor"`
	Verb    Verb     `json:"verb"`
	Object  Object   `json:"object"`
	Result  *Result  `json:"result,omitempty"`
	Context *Context `json:"context,omitempty"`
}

// Bool returns a pointer for optional boolean result fields.
func Bool(b bool) *bool { return &b }
