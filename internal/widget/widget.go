package widget

import "encoding/json"

// Widget is one interactive authoring element inside a question, exactly as the
// renderer ships it: a stable key, a type string and type-specific options.
// The options payload is never mutated; encoders decode the slice they need.
type Widget struct {
	Key     string          `json:"key"`
	Type    string          `json:"type"`
	Options json.RawMessage `json:"options,omitempty"`
}

// Item is the current question: its content markup plus the ordered widget list.
type Item struct {
	Content string   `json:"content"`
	Widgets []Widget `json:"widgets"`
}

// Kind is the grouping behaviour of a widget type.
type Kind int

const (
	// KindDefault collects unrecognized widget types into the shared bucket.
	KindDefault Kind = iota
	// KindIndividual widgets always form their own group.
	KindIndividual
	// KindGroupable widgets merge with an adjacent run of the same type.
	KindGroupable
	// KindUnsupported widgets carry no scorable response; they share the
	// default bucket with unrecognized types.
	KindUnsupported
	// KindContainer widgets hold a nested widget list that is expanded in
	// place into the surrounding group sequence.
	KindContainer
)

// TypeDefault names the shared bucket for unsupported and unrecognized widgets.
const TypeDefault = "default"

var kinds = map[string]Kind{
	"input-number":  KindGroupable,
	"numeric-input": KindGroupable,
	"expression":    KindGroupable,

	"radio":       KindIndividual,
	"dropdown":    KindIndividual,
	"orderer":     KindIndividual,
	"sorter":      KindIndividual,
	"matcher":     KindIndividual,
	"categorizer": KindIndividual,

	"graded-group":     KindContainer,
	"graded-group-set": KindContainer,
	"group":            KindContainer,

	"image":       KindUnsupported,
	"definition":  KindUnsupported,
	"video":       KindUnsupported,
	"passage":     KindUnsupported,
	"passage-ref": KindUnsupported,
	"explanation": KindUnsupported,
	"iframe":      KindUnsupported,
	"interaction": KindUnsupported,
	"grapher":     KindUnsupported,
	"matrix":      KindUnsupported,
}

// KindOf classifies a widget type. Unknown types are KindDefault.
func KindOf(widgetType string) Kind {
	return kinds[widgetType]
}

// containerOptions is the slice of a container widget's options holding its
// nested widget map. Nested order follows the renderer's serialized order.
type containerOptions struct {
	Widgets []Widget `json:"widgets"`
}
