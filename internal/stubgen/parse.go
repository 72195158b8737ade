package stubgen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strconv"
	"strings"
)

// Directives recognised in doc comments.
const (
	ContractDirective  = "//apikit:contract"
	OperationDirective = "//apikit:"
)

// TaskPath is the import path of the deferred result types.
const TaskPath = "github.com/kbukum/apikit/task"

// Shape mirrors the result shapes accepted for operations.
type Shape int

const (
	ShapeError Shape = iota
	ShapeSync
	ShapeDeferred
	ShapeFuture
)

// File is the contract content of one source file.
type File struct {
	Path      string
	Package   string
	Imports   []*Import
	Contracts []Contract
	// TaskName is the local name of the task package, if imported.
	TaskName string
}

// Import is one import of the source file.
type Import struct {
	// Name is the local name, empty when it is the package's own name.
	Name string
	Path string
	used bool
}

// Contract is one annotated interface.
type Contract struct {
	Name       string
	Tag        string
	Operations []Operation
}

// Operation is one method of a contract.
type Operation struct {
	Name   string
	Tag    string
	Params []string
	// Result is the type of the first result, or the element type of a
	// task or future.
	Result string
	Shape  Shape
}

type reader struct {
	fset    *token.FileSet
	imports map[string]*Import
	task    string
}

// ParseFile reads the contracts declared in the Go file at path. src
// overrides the file content when non-nil, as for go/parser.
func ParseFile(path string, src any) (*File, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	p := &reader{fset: fset, imports: make(map[string]*Import)}
	out := &File{Path: path, Package: af.Name.Name}
	for _, spec := range af.Imports {
		ipath, _ := strconv.Unquote(spec.Path.Value)
		imp := &Import{Path: ipath}
		local := ipath[strings.LastIndex(ipath, "/")+1:]
		if spec.Name != nil {
			imp.Name, local = spec.Name.Name, spec.Name.Name
		}
		if local == "_" || local == "." {
			continue
		}
		out.Imports = append(out.Imports, imp)
		p.imports[local] = imp
		if ipath == TaskPath {
			p.task, out.TaskName = local, local
		}
	}

	for _, decl := range af.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			tag, ok := directive(doc, ContractDirective)
			if !ok {
				continue
			}
			if ts.TypeParams != nil {
				return nil, p.errorf(ts.Pos(), "contract %s: generic interfaces are not supported", ts.Name.Name)
			}
			c, err := p.contract(ts.Name.Name, tag, it)
			if err != nil {
				return nil, err
			}
			out.Contracts = append(out.Contracts, c)
		}
	}
	return out, nil
}

func (p *reader) contract(name, tag string, it *ast.InterfaceType) (Contract, error) {
	c := Contract{Name: name, Tag: tag}
	for _, m := range it.Methods.List {
		ft, ok := m.Type.(*ast.FuncType)
		if !ok || len(m.Names) == 0 {
			return c, p.errorf(m.Pos(), "contract %s: embedded interfaces are not supported", name)
		}
		op := Operation{Name: m.Names[0].Name}
		op.Tag, _ = directive(m.Doc, OperationDirective)
		if err := p.signature(&op, ft); err != nil {
			return c, p.errorf(m.Pos(), "contract %s operation %s: %v", name, op.Name, err)
		}
		c.Operations = append(c.Operations, op)
	}
	return c, nil
}

func (p *reader) signature(op *Operation, ft *ast.FuncType) error {
	for _, f := range ft.Params.List {
		if _, ok := f.Type.(*ast.Ellipsis); ok {
			return fmt.Errorf("variadic parameters are not supported")
		}
		typ := p.expr(f.Type)
		n := max(len(f.Names), 1)
		for range n {
			op.Params = append(op.Params, typ)
		}
	}

	var results []ast.Expr
	if ft.Results != nil {
		for _, f := range ft.Results.List {
			for range max(len(f.Names), 1) {
				results = append(results, f.Type)
			}
		}
	}
	switch {
	case len(results) == 1 && isError(results[0]):
		op.Shape = ShapeError
	case len(results) == 1:
		elem, shape, ok := p.deferred(results[0])
		if !ok {
			return fmt.Errorf("return must be error, (T, error), task.Task[T] or *task.Future[T]")
		}
		op.Shape, op.Result = shape, p.expr(elem)
		p.imports[p.task].used = true
	case len(results) == 2 && isError(results[1]):
		if _, _, ok := p.deferred(results[0]); ok {
			return fmt.Errorf("tasks and futures carry their own error")
		}
		op.Shape, op.Result = ShapeSync, p.expr(results[0])
	default:
		return fmt.Errorf("return must be error, (T, error), task.Task[T] or *task.Future[T]")
	}
	return nil
}

// deferred matches task.Task[T] and *task.Future[T].
func (p *reader) deferred(e ast.Expr) (ast.Expr, Shape, bool) {
	shape := ShapeDeferred
	if star, ok := e.(*ast.StarExpr); ok {
		e, shape = star.X, ShapeFuture
	}
	ix, ok := e.(*ast.IndexExpr)
	if !ok || p.task == "" {
		return nil, 0, false
	}
	sel, ok := ix.X.(*ast.SelectorExpr)
	if !ok {
		return nil, 0, false
	}
	if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != p.task {
		return nil, 0, false
	}
	want := "Task"
	if shape == ShapeFuture {
		want = "Future"
	}
	if sel.Sel.Name != want {
		return nil, 0, false
	}
	return ix.Index, shape, true
}

// expr prints e and marks the imports it refers to.
func (p *reader) expr(e ast.Expr) string {
	ast.Inspect(e, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				if imp := p.imports[id.Name]; imp != nil {
					imp.used = true
				}
			}
		}
		return true
	})
	var buf bytes.Buffer
	_ = printer.Fprint(&buf, p.fset, e)
	return buf.String()
}

func (p *reader) errorf(pos token.Pos, format string, args ...any) error {
	return fmt.Errorf("%s: %s", p.fset.Position(pos), fmt.Sprintf(format, args...))
}

func isError(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "error"
}

// directive returns the text after prefix on the first matching line of
// doc, joined with the text of following directive lines.
func directive(doc *ast.CommentGroup, prefix string) (string, bool) {
	if doc == nil {
		return "", false
	}
	var (
		parts []string
		found bool
	)
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, prefix)
		if !ok {
			continue
		}
		if prefix == OperationDirective && strings.HasPrefix(rest, "contract") {
			continue
		}
		// "//apikit:contractual" is not a directive
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		found = true
		if s := strings.TrimSpace(rest); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), found
}
