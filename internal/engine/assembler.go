package engine

import (
	"github.com/google/uuid"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// createStatement combines the five statement parts. Only the object and verb
// are mandatory; result and context are attached when present.
func createStatement(actor xapi.Actor, verb xapi.Verb, obj xapi.Object, result *xapi.Result, ctx *xapi.Context) xapi.Statement {
	return xapi.Statement{
		ID:      uuid.NewString(),
		Actor:   actor,
		Verb:    verb,
		Object:  obj,
		Result:  result,
		Context: ctx,
	}
}

// exerciseContext is the context for statements whose object is the exercise
// itself (attempted, completed): launch metadata plus the optional launch-time
// grouping activity, no parent link.
func (e *Engine) exerciseContext() *xapi.Context {
	ctx := &xapi.Context{
		Registration: e.cfg.Registration,
		Platform:     e.cfg.Platform,
		Language:     e.cfg.LaunchLanguage,
	}
	if e.cfg.Grouping != "" {
		ctx.ContextActivities = &xapi.ContextActivities{
			Grouping: []xapi.Object{{ID: e.cfg.Grouping}},
		}
	}
	return ctx
}

// questionContext links a question statement to the exercise activity as its
// parent. Sibling sub-question ids are attached as grouping activities when a
// single question yields several statements, so a consumer can reconstruct
// that they originated from one question.
func (e *Engine) questionContext(siblingIDs []string) *xapi.Context {
	ca := &xapi.ContextActivities{
		Parent: []xapi.Object{{ID: e.cfg.Activity.ID, ObjectType: "Activity"}},
	}
	if e.cfg.Grouping != "" {
		ca.Grouping = append(ca.Grouping, xapi.Object{ID: e.cfg.Grouping})
	}
	for _, id := range siblingIDs {
		ca.Grouping = append(ca.Grouping, xapi.Object{ID: id})
	}
	return &xapi.Context{
		Registration:      e.cfg.Registration,
		Platform:          e.cfg.Platform,
		Language:          e.cfg.LaunchLanguage,
		ContextActivities: ca,
	}
}
