// Package gql exposes the project store through a GraphQL schema.
package gql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/dal"
	"github.com/berrythewa/deskbridge/internal/types"
)

// ErrQuery wraps GraphQL validation and resolver errors.
var ErrQuery = errors.New("graphql query failed")

// ErrRootFields is returned when a document selects other than one root field.
var ErrRootFields = errors.New("graphql command expects exactly one root field")

// Store is the subset of the DAL the schema resolves against.
type Store interface {
	Projects() ([]string, error)
	CreateProject(ctx context.Context, name string) (*dal.Project, error)
	DeleteProject(name string) error
	Project(ctx context.Context, name string) (*dal.Project, error)
}

// Schema executes GraphQL documents against a Store.
type Schema struct {
	schema graphql.Schema
	store  Store
	logger *zap.Logger
}

var entryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Entry",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"title":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"body":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"published": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
	},
})

var entryInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "EntryInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"title":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"body":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"published": &graphql.InputObjectFieldConfig{Type: graphql.Boolean, DefaultValue: false},
	},
})

// NewSchema builds the query and mutation types over store.
func NewSchema(store Store, logger *zap.Logger) (*Schema, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Schema{store: store, logger: logger}

	projectArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	idArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"projects": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: s.resolveProjects,
			},
			"entries": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(entryType))),
				Args:    graphql.FieldConfigArgument{"project": projectArg},
				Resolve: s.resolveEntries,
			},
			"entry": &graphql.Field{
				Type:    entryType,
				Args:    graphql.FieldConfigArgument{"project": projectArg, "id": idArg},
				Resolve: s.resolveEntry,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createProject": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"project": projectArg},
				Resolve: s.resolveCreateProject,
			},
			"deleteProject": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"project": projectArg},
				Resolve: s.resolveDeleteProject,
			},
			"createEntry": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Args: graphql.FieldConfigArgument{
					"project": projectArg,
					"entry":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(entryInputType)},
				},
				Resolve: s.resolveCreateEntry,
			},
			"deleteEntry": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"project": projectArg, "id": idArg},
				Resolve: s.resolveDeleteEntry,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// Request is one GraphQL document with its variables.
type Request struct {
	Query         string
	Variables     map[string]interface{}
	OperationName string
}

// Execute runs req and returns the data of the response.
func (s *Schema) Execute(ctx context.Context, req Request) (map[string]interface{}, error) {
	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	if result.HasErrors() {
		messages := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			messages = append(messages, e.Message)
		}
		s.logger.Debug("GraphQL request failed", zap.Strings("errors", messages))
		return nil, fmt.Errorf("%w: %s", ErrQuery, strings.Join(messages, "; "))
	}

	data, ok := result.Data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: no data", ErrQuery)
	}
	return data, nil
}

// Records runs req and flattens its single root field into a sequence: a
// list is returned element by element, any other value as one record.
func (s *Schema) Records(ctx context.Context, req Request) ([]interface{}, error) {
	data, err := s.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(data) != 1 {
		fields := make([]string, 0, len(data))
		for k := range data {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		return nil, fmt.Errorf("%w, got %d (%s)", ErrRootFields, len(data), strings.Join(fields, ", "))
	}

	for _, value := range data {
		if list, ok := value.([]interface{}); ok {
			return list, nil
		}
		return []interface{}{value}, nil
	}
	return []interface{}{}, nil
}

func (s *Schema) resolveProjects(p graphql.ResolveParams) (interface{}, error) {
	projects, err := s.store.Projects()
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(projects))
	for i, name := range projects {
		out[i] = name
	}
	return out, nil
}

func (s *Schema) resolveEntries(p graphql.ResolveParams) (interface{}, error) {
	project, err := s.store.Project(p.Context, p.Args["project"].(string))
	if err != nil {
		return nil, err
	}
	entries, err := project.Entries(p.Context)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(entries))
	for i, e := range entries {
		out[i] = entryFields(e)
	}
	return out, nil
}

func (s *Schema) resolveEntry(p graphql.ResolveParams) (interface{}, error) {
	project, err := s.store.Project(p.Context, p.Args["project"].(string))
	if err != nil {
		return nil, err
	}
	e, err := project.Entry(p.Context, int64(p.Args["id"].(int)))
	if errors.Is(err, dal.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entryFields(e), nil
}

func (s *Schema) resolveCreateProject(p graphql.ResolveParams) (interface{}, error) {
	if _, err := s.store.CreateProject(p.Context, p.Args["project"].(string)); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Schema) resolveDeleteProject(p graphql.ResolveParams) (interface{}, error) {
	if err := s.store.DeleteProject(p.Args["project"].(string)); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Schema) resolveCreateEntry(p graphql.ResolveParams) (interface{}, error) {
	project, err := s.store.Project(p.Context, p.Args["project"].(string))
	if err != nil {
		return nil, err
	}
	input, _ := p.Args["entry"].(map[string]interface{})
	e := types.CreateEntry{}
	e.Title, _ = input["title"].(string)
	e.Body, _ = input["body"].(string)
	e.Published, _ = input["published"].(bool)

	id, err := project.CreateEntry(p.Context, e)
	if err != nil {
		return nil, err
	}
	return int(id), nil
}

func (s *Schema) resolveDeleteEntry(p graphql.ResolveParams) (interface{}, error) {
	project, err := s.store.Project(p.Context, p.Args["project"].(string))
	if err != nil {
		return nil, err
	}
	if err := project.DeleteEntry(p.Context, int64(p.Args["id"].(int))); err != nil {
		return nil, err
	}
	return true, nil
}

func entryFields(e types.Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":        int(e.ID),
		"title":     e.Title,
		"body":      e.Body,
		"published": e.Published,
	}
}
