package display

import (
	"context"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/command"
)

// Greeter is the part of the façade the greeting view needs.
type Greeter interface {
	Greet(ctx context.Context, name string) (string, error)
}

// Querier is the part of the façade the records view needs.
type Querier interface {
	GraphQL(ctx context.Context, query string, variables map[string]interface{}) ([]command.Record, error)
}

// NewGreetingView binds the greet command for name. Its empty value is "".
func NewGreetingView(g Greeter, name string, logger *zap.Logger) *Binding[string] {
	return NewBinding("greeting", func(ctx context.Context) (string, error) {
		return g.Greet(ctx, name)
	}, "", logger)
}

// NewRecordsView binds a graphql query. Its empty value is an empty,
// non-nil sequence so it always renders as [].
func NewRecordsView(q Querier, query string, variables map[string]interface{}, logger *zap.Logger) *Binding[[]command.Record] {
	return NewBinding("records", func(ctx context.Context) ([]command.Record, error) {
		records, err := q.GraphQL(ctx, query, variables)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []command.Record{}
		}
		return records, nil
	}, []command.Record{}, logger)
}
