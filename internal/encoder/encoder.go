package encoder

import (
	"encoding/json"
	"fmt"

	"github.com/edtrack/exercise-xapi/internal/widget"
	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// Source is the authoring-side input to an encoder: everything needed to build
// the interaction object for one widget group. It carries no user response, so
// two sessions with identical content produce identical objects.
type Source struct {
	// ActivityID is the sub-question activity id, e.g. "{endpoint}/question-3a".
	ActivityID string
	// Label is the sub-question label shown in the object name ("3", "3a", ...).
	Label string
	// Content is the question's authored content markup.
	Content string
	// Language keys the localized name/description maps.
	Language string
	// Widgets is the group's widget run, in authoring order.
	Widgets []widget.Widget
}

// Input is the raw per-widget user response, keyed by widget key. Each encoder
// decodes only the shape its interaction family produces.
type Input map[string]json.RawMessage

// Encoder turns one widget group into an interaction object and, per answer
// event, a result. Adding a widget type means adding one registry entry.
type Encoder interface {
	// BuildObject derives the object purely from authoring data. It fails
	// when required authoring fields are absent rather than emitting a
	// malformed object.
	BuildObject(src Source) (xapi.Object, error)
	// BuildResult derives the result from the live response and the already
	// built object's correct-response pattern.
	BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error)
}

var registry = map[string]Encoder{
	"input-number":  numericEncoder{},
	"numeric-input": numericEncoder{},
	"orderer":       ordererEncoder{},
	"sorter":        sorterEncoder{},
	"radio":         radioEncoder{},
	"dropdown":      dropdownEncoder{},
	"matcher":       matcherEncoder{},
	"categorizer":   categorizerEncoder{},
	"expression":    expressionEncoder{},
}

// For returns the encoder for a group type. Unknown types fall back to the
// descriptive encoder, which never fails.
func For(groupType string) Encoder {
	if e, ok := registry[groupType]; ok {
		return e
	}
	return fallbackEncoder{}
}

// Supported reports whether a group type has a scoring encoder.
func Supported(groupType string) bool {
	_, ok := registry[groupType]
	return ok
}

// ===== shared helpers =====

// Response list separator and matching pair separator, per the cmi.interaction
// response grammar.
const (
	joinSep = "[,]"
	pairSep = "[.]"
)

// baseObject is the descriptive scaffold every encoder starts from.
func baseObject(src Source) xapi.Object {
	return xapi.Object{
		ID:         src.ActivityID,
		ObjectType: "Activity",
		Definition: xapi.Definition{
			Name:        localized(src.Language, "Question "+src.Label),
			Description: localized(src.Language, src.Content),
			Type:        xapi.ActivityTypeInteraction,
		},
	}
}

func localized(lang, text string) map[string]string {
	if lang == "" {
		lang = "en"
	}
	return map[string]string{lang: text}
}

// localizedText resolves a localized map in the session language, falling back
// to the first available localization.
func localizedText(m map[string]string, lang string) string {
	if t, ok := m[lang]; ok {
		return t
	}
	for _, t := range m {
		return t
	}
	return ""
}

// matchComponent finds the component whose description equals text in the
// session language. Returns "" when nothing matches.
func matchComponent(components []xapi.Component, lang, text string) string {
	for _, c := range components {
		if localizedText(c.Description, lang) == text {
			return c.ID
		}
	}
	return ""
}

// firstPattern is the success-path response: the pattern itself.
func firstPattern(obj xapi.Object) (string, error) {
	if len(obj.Definition.CorrectResponsesPattern) == 0 {
		return "", fmt.Errorf("object %s has no correct responses pattern", obj.ID)
	}
	return obj.Definition.CorrectResponsesPattern[0], nil
}

func newResult(response string, success bool, duration string) xapi.Result {
	return xapi.Result{
		Response: response,
		Success:  xapi.Bool(success),
		Duration: duration,
	}
}
