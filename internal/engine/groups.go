package engine

import (
	"strconv"

	"github.com/edtrack/exercise-xapi/internal/widget"
)

// subQuestion is one statement-worth of a question: a widget group with its
// sub-question label and, when the question yields siblings, the full sibling
// label set.
type subQuestion struct {
	Label    string
	Group    widget.Group
	Siblings []string // nil for a lone group
}

// splitQuestion turns a question's groups into sub-questions. Default buckets
// are dropped as soon as any scored group exists; a question that is nothing
// but default widgets still yields exactly one minimal sub-question so the
// session can progress. Labels are the 1-based question number, suffixed
// "a", "b", ... when the question splits into several statements.
func splitQuestion(groups []widget.Group, questionIndex int) []subQuestion {
	if len(groups) == 0 {
		return nil
	}
	scored := make([]widget.Group, 0, len(groups))
	for _, g := range groups {
		if g.Type != widget.TypeDefault {
			scored = append(scored, g)
		}
	}

	number := strconv.Itoa(questionIndex + 1)

	if len(scored) == 0 {
		return []subQuestion{{Label: number, Group: groups[0]}}
	}
	if len(scored) == 1 {
		return []subQuestion{{Label: number, Group: scored[0]}}
	}

	labels := make([]string, len(scored))
	for i := range scored {
		labels[i] = number + subLabel(i)
	}
	subs := make([]subQuestion, len(scored))
	for i, g := range scored {
		subs[i] = subQuestion{Label: labels[i], Group: g, Siblings: labels}
	}
	return subs
}

// subLabel yields a, b, ..., z, aa, ab, ... for sibling ordinals.
func subLabel(i int) string {
	var out []byte
	for {
		out = append([]byte{byte('a' + i%26)}, out...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(out)
}
