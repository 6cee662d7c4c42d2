// Package filter evaluates CEL expressions against items, powering the
// filter= parameter on list endpoints. Expressions see the variables
// source (string), tags (list of string), title (string), url (string)
// and created_ts (unix seconds), e.g.:
//
//	source == "bookmark" && "golang" in tags
//	created_ts > timestamp("2024-01-01T00:00:00Z").getSeconds()
package filter

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/usenexus/nexus/store"
)

// Filter is a compiled item predicate.
type Filter struct {
	program cel.Program
}

// Compile parses and checks a CEL expression.
func Compile(expression string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("source", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("title", cel.StringType),
		cel.Variable("url", cel.StringType),
		cel.Variable("created_ts", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter environment")
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter %q", expression)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter program")
	}
	return &Filter{program: program}, nil
}

// Match reports whether the item satisfies the filter. A non-boolean
// result or evaluation error counts as no match.
func (f *Filter) Match(item *store.Item) bool {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	var createdTs int64
	if item.CreatedAt != nil {
		createdTs = item.CreatedAt.Unix()
	}

	out, _, err := f.program.Eval(map[string]any{
		"source":     string(item.Source),
		"tags":       tags,
		"title":      item.Title,
		"url":        item.URL,
		"created_ts": createdTs,
	})
	if err != nil {
		return false
	}

	matched, ok := out.Value().(bool)
	return ok && matched
}

// Apply returns the items matching the filter, preserving order.
func (f *Filter) Apply(items []*store.Item) []*store.Item {
	filtered := make([]*store.Item, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
