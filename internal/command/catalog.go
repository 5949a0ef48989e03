// Package command is the client-side façade over the host's command set.
//
// Every command the host answers is declared in the catalog below together
// with the shape of its response, so payloads are checked at the boundary
// instead of being handed to callers as untyped JSON.
package command

import (
	"fmt"
	"sort"
)

// Name identifies a host command.
type Name string

// The fixed command set exposed by the host.
const (
	Greet        Name = "greet"
	GraphQL      Name = "graphql"
	History      Name = "history"
	FlushHistory Name = "flush_history"
	Ping         Name = "ping"
)

// Shape is the JSON type a command's success payload must have.
type Shape int

const (
	ShapeString Shape = iota
	ShapeSequence
	ShapeObject
)

func (s Shape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeSequence:
		return "sequence"
	case ShapeObject:
		return "object"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Spec describes one catalog entry.
type Spec struct {
	Name     Name
	Args     []string // Required argument names
	Optional []string
	Shape    Shape
	Summary  string
}

var catalog = map[Name]Spec{
	Greet: {
		Name:    Greet,
		Args:    []string{"name"},
		Shape:   ShapeString,
		Summary: "Greet someone by name",
	},
	GraphQL: {
		Name:     GraphQL,
		Args:     []string{"query"},
		Optional: []string{"variables", "operationName"},
		Shape:    ShapeSequence,
		Summary:  "Run a GraphQL query or mutation against the project store",
	},
	History: {
		Name:     History,
		Optional: []string{"limit", "command"},
		Shape:    ShapeSequence,
		Summary:  "List journalled invocations, newest first",
	},
	FlushHistory: {
		Name:     FlushHistory,
		Optional: []string{"keep"},
		Shape:    ShapeObject,
		Summary:  "Drop all but the newest journalled invocations",
	},
	Ping: {
		Name:    Ping,
		Shape:   ShapeString,
		Summary: "Check that the host is answering",
	},
}

// Lookup returns the catalog entry for name.
func Lookup(name Name) (Spec, bool) {
	spec, ok := catalog[name]
	return spec, ok
}

// Catalog returns every command spec ordered by name.
func Catalog() []Spec {
	specs := make([]Spec, 0, len(catalog))
	for _, spec := range catalog {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
	return specs
}
