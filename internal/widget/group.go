package widget

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Group is a maximal run of same-type groupable widgets, a singleton for an
// individual widget, or the shared default bucket.
type Group struct {
	Type    string
	Widgets []Widget
}

// Grouper partitions a question's widgets into ordered groups.
type Grouper struct {
	log *zap.Logger
}

func NewGrouper(log *zap.Logger) *Grouper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Grouper{log: log}
}

// Partition walks the widget list once, left to right, maintaining a single
// open group. A groupable widget continues an open run of its own type and
// closes any other. Individual widgets close the open run and emit alone.
// Container widgets expand their nested widgets into the same running
// sequence. Unsupported and unrecognized widgets accumulate in one default
// bucket which, when non-empty, is appended after all scored groups.
func (g *Grouper) Partition(widgets []Widget) []Group {
	var (
		groups  []Group
		current *Group
		bucket  *Group
	)
	current, groups = g.walk(widgets, current, &bucket, groups)
	if current != nil {
		groups = append(groups, *current)
	}
	if bucket != nil {
		groups = append(groups, *bucket)
	}
	return groups
}

func (g *Grouper) walk(widgets []Widget, current *Group, bucket **Group, groups []Group) (*Group, []Group) {
	for _, w := range widgets {
		if w.Type == "" {
			g.log.Warn("widget has no type, skipping", zap.String("key", w.Key))
			continue
		}
		switch KindOf(w.Type) {
		case KindGroupable:
			if current != nil && current.Type != w.Type {
				groups = append(groups, *current)
				current = nil
			}
			if current == nil {
				current = &Group{Type: w.Type}
			}
			current.Widgets = append(current.Widgets, w)

		case KindIndividual:
			if current != nil {
				groups = append(groups, *current)
				current = nil
			}
			groups = append(groups, Group{Type: w.Type, Widgets: []Widget{w}})

		case KindContainer:
			var opts containerOptions
			if err := json.Unmarshal(w.Options, &opts); err != nil {
				g.log.Warn("container widget has unreadable options, skipping",
					zap.String("key", w.Key), zap.Error(err))
				continue
			}
			current, groups = g.walk(opts.Widgets, current, bucket, groups)

		default: // KindUnsupported and KindDefault share the bucket
			if *bucket == nil {
				*bucket = &Group{Type: TypeDefault}
			}
			(*bucket).Widgets = append((*bucket).Widgets, w)
		}
	}
	return current, groups
}
