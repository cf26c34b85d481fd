// Package filter provides AIP-160 filter expression parsing into in-memory
// predicates over registry entries.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
)

// Predicate reports whether an entry matches a filter.
type Predicate func(storage.AuthoredMutation) bool

// fields maps filter identifiers to entry accessors.
var fields = map[string]func(storage.AuthoredMutation) string{
	"author_id":   func(m storage.AuthoredMutation) string { return m.AuthorID },
	"mutation_id": func(m storage.AuthoredMutation) string { return m.MutationID },
}

// MutationDeclarations returns the field declarations for mutation filtering.
func MutationDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("author_id", filtering.TypeString),
		filtering.DeclareIdent("mutation_id", filtering.TypeString),
	)
}

// MatchAll accepts every entry.
func MatchAll(storage.AuthoredMutation) bool { return true }

// ParseMutationFilter parses an AIP-160 filter expression into a predicate.
// An empty filter matches everything.
//
// Supported: =, != on author_id and mutation_id, AND, OR, NOT, and a
// trailing * on an = value for prefix matching.
func ParseMutationFilter(filterStr string) (Predicate, error) {
	if strings.TrimSpace(filterStr) == "" {
		return MatchAll, nil
	}

	decls, err := MutationDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	if filter.CheckedExpr == nil || filter.CheckedExpr.Expr == nil {
		return MatchAll, nil
	}
	return translateExpr(filter.CheckedExpr.Expr)
}

func translateExpr(e *expr.Expr) (Predicate, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func translateCall(call *expr.Expr_Call) (Predicate, error) {
	switch call.Function {
	case "_&&_", "AND":
		return translateAnd(call.Args)
	case "_||_", "OR":
		return translateOr(call.Args)
	case "_!_", "NOT":
		return translateNot(call.Args)
	case "_==_", "=":
		return translateEquals(call.Args)
	case "_!=_", "!=":
		eq, err := translateEquals(call.Args)
		if err != nil {
			return nil, err
		}
		return func(m storage.AuthoredMutation) bool { return !eq(m) }, nil
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateAnd(args []*expr.Expr) (Predicate, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("AND requires 2 arguments")
	}
	preds, err := translateArgs(args)
	if err != nil {
		return nil, err
	}
	return func(m storage.AuthoredMutation) bool {
		for _, p := range preds {
			if !p(m) {
				return false
			}
		}
		return true
	}, nil
}

func translateOr(args []*expr.Expr) (Predicate, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("OR requires 2 arguments")
	}
	preds, err := translateArgs(args)
	if err != nil {
		return nil, err
	}
	return func(m storage.AuthoredMutation) bool {
		for _, p := range preds {
			if p(m) {
				return true
			}
		}
		return false
	}, nil
}

func translateNot(args []*expr.Expr) (Predicate, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("NOT requires 1 argument")
	}
	inner, err := translateExpr(args[0])
	if err != nil {
		return nil, err
	}
	return func(m storage.AuthoredMutation) bool { return !inner(m) }, nil
}

func translateArgs(args []*expr.Expr) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(args))
	for _, arg := range args {
		p, err := translateExpr(arg)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func translateEquals(args []*expr.Expr) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return nil, err
	}
	get, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("unknown field: %s", field)
	}
	value, err := extractString(args[1])
	if err != nil {
		return nil, err
	}

	if prefix, wildcard := strings.CutSuffix(value, "*"); wildcard {
		return func(m storage.AuthoredMutation) bool { return strings.HasPrefix(get(m), prefix) }, nil
	}
	return func(m storage.AuthoredMutation) bool { return get(m) == value }, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractString(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	constExpr, ok := e.ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return "", fmt.Errorf("expected constant, got %T", e.ExprKind)
	}
	strVal, ok := constExpr.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return "", fmt.Errorf("expected string constant, got %T", constExpr.ConstExpr.GetConstantKind())
	}
	return strVal.StringValue, nil
}
