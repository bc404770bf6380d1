// Package predicate compiles CEL filter expressions evaluated against one
// result row at a time. Rows are exposed to the expression as the map r:
//
//	r.status == "open" && r.priority > 2
//	r["due date"] != null
package predicate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// RowVar is the variable name rows are bound to.
const RowVar = "r"

// ErrNotBool is returned when an expression does not evaluate to a bool.
var ErrNotBool = errors.New("filter must evaluate to a bool")

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func rowEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable(RowVar, cel.MapType(cel.StringType, cel.DynType)),
			celext.Strings(),
			celext.Math(),
		)
	})
	return env, envErr
}

// Predicate is a compiled filter. The zero value and nil match every row.
type Predicate struct {
	expr   string
	prg    cel.Program
	fields []string
}

// Compile parses and type-checks expr. An empty expression yields a predicate
// that matches everything.
func Compile(expr string) (*Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Predicate{}, nil
	}
	e, err := rowEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w, got %s", ErrNotBool, out)
	}
	prg, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("inspect filter: %w", err)
	}
	return &Predicate{expr: expr, prg: prg, fields: rowFields(parsed.GetExpr())}, nil
}

// String returns the source expression.
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Fields lists the row fields the expression reads, sorted.
func (p *Predicate) Fields() []string {
	if p == nil {
		return nil
	}
	return p.fields
}

// Match evaluates the predicate against a row.
func (p *Predicate) Match(row map[string]any) (bool, error) {
	if p == nil || p.prg == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(map[string]any{RowVar: row})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("%w, got %s", ErrNotBool, out.Type())
	}
	return bool(b), nil
}

// rowFields collects r.<field> and r["field"] references.
func rowFields(root *exprpb.Expr) []string {
	seen := map[string]bool{}
	var walk func(*exprpb.Expr)
	walk = func(e *exprpb.Expr) {
		if e == nil {
			return
		}
		switch e.ExprKind.(type) {
		case *exprpb.Expr_SelectExpr:
			sel := e.GetSelectExpr()
			if isRowIdent(sel.GetOperand()) {
				seen[sel.GetField()] = true
				return
			}
			walk(sel.GetOperand())
		case *exprpb.Expr_CallExpr:
			call := e.GetCallExpr()
			if call.GetFunction() == "_[_]" && len(call.GetArgs()) == 2 && isRowIdent(call.GetArgs()[0]) {
				if lit := call.GetArgs()[1].GetConstExpr(); lit != nil {
					if s, ok := lit.ConstantKind.(*exprpb.Constant_StringValue); ok {
						seen[s.StringValue] = true
						return
					}
				}
			}
			walk(call.GetTarget())
			for _, arg := range call.GetArgs() {
				walk(arg)
			}
		case *exprpb.Expr_ListExpr:
			for _, elem := range e.GetListExpr().GetElements() {
				walk(elem)
			}
		case *exprpb.Expr_StructExpr:
			for _, entry := range e.GetStructExpr().GetEntries() {
				walk(entry.GetMapKey())
				walk(entry.GetValue())
			}
		case *exprpb.Expr_ComprehensionExpr:
			c := e.GetComprehensionExpr()
			walk(c.GetIterRange())
			walk(c.GetAccuInit())
			walk(c.GetLoopCondition())
			walk(c.GetLoopStep())
			walk(c.GetResult())
		}
	}
	walk(root)

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func isRowIdent(e *exprpb.Expr) bool {
	if e == nil {
		return false
	}
	ident := e.GetIdentExpr()
	return ident != nil && ident.GetName() == RowVar
}
