package graph

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/hashicorp/go-hclog"
)

// Request is a GraphQL operation as sent over HTTP or a websocket.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
}

// Executor runs requests against the schema.
type Executor struct {
	schema graphql.Schema
	log    hclog.Logger
}

func NewExecutor(r *Resolver, logger hclog.Logger) (*Executor, error) {
	schema, err := NewSchema(r)
	if err != nil {
		return nil, err
	}
	return &Executor{schema: schema, log: logger}, nil
}

// Do executes a query or mutation.
func (e *Executor) Do(ctx context.Context, req Request) *graphql.Result {
	e.log.Debug("Executing operation", "operation", req.OperationName)
	return graphql.Do(e.params(ctx, req))
}

// Subscribe streams results for a subscription until ctx is done or the
// event source ends. Queries and mutations yield exactly one result.
// Callers that stop reading early must cancel ctx.
func (e *Executor) Subscribe(ctx context.Context, req Request) <-chan *graphql.Result {
	if !IsSubscription(req) {
		out := make(chan *graphql.Result, 1)
		out <- e.Do(ctx, req)
		close(out)
		return out
	}

	e.log.Debug("Starting subscription", "operation", req.OperationName)
	return forward(ctx, graphql.Subscribe(e.params(ctx, req)))
}

// forward copies results to a channel the reader may abandon. graphql-go
// sends on results without watching ctx, so once ctx is done whatever is
// left gets drained until graphql-go closes it.
func forward(ctx context.Context, results <-chan *graphql.Result) <-chan *graphql.Result {
	out := make(chan *graphql.Result)
	go func() {
		defer close(out)
		defer func() {
			for range results {
			}
		}()

		for {
			select {
			case res, ok := <-results:
				if !ok {
					return
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (e *Executor) params(ctx context.Context, req Request) graphql.Params {
	return graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	}
}

// IsSubscription reports whether req selects a subscription operation.
// Unparsable documents are not subscriptions; executing them reports the
// syntax error.
func IsSubscription(req Request) bool {
	return OperationType(req) == ast.OperationTypeSubscription
}

// OperationType returns "query", "mutation" or "subscription" for the
// operation req selects, or "" when the document cannot be parsed or the
// operation is not found.
func OperationType(req Request) string {
	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return ""
	}

	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if req.OperationName != "" && (op.Name == nil || op.Name.Value != req.OperationName) {
			continue
		}
		if op.Operation == "" {
			return ast.OperationTypeQuery
		}
		return op.Operation
	}
	return ""
}

// subscribe bridges a bus subscription to the channel graphql-go reads
// subscription payloads from. The subscription ends with ctx.
func (r *Resolver) subscribe(topic string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		ctx := p.Context
		sub, err := r.events.Subscribe(ctx, topic)
		if err != nil {
			return nil, r.mapError(err)
		}
		r.log.Debug("GraphQL subscription started", "topic", topic, "subscription", sub.ID())

		out := make(chan interface{})
		go func() {
			defer close(out)
			defer sub.Cancel()

			for msg := range sub.All(ctx) {
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
			r.log.Debug("GraphQL subscription ended", "topic", topic, "subscription", sub.ID())
		}()
		return out, nil
	}
}
