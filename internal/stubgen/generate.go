package stubgen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	contractPath = "github.com/kbukum/apikit/contract"
	proxyPath    = "github.com/kbukum/apikit/proxy"
)

// OutputPath returns the path of the file generated for src.
func OutputPath(src string) string {
	return strings.TrimSuffix(src, ".go") + "_apikit.go"
}

// Generate renders the stubs of f as formatted Go source. A file without
// contracts yields nil.
func Generate(f *File) ([]byte, error) {
	if len(f.Contracts) == 0 {
		return nil, nil
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by apikit-gen from %s. DO NOT EDIT.\n\n", filepath.Base(f.Path))
	fmt.Fprintf(&b, "package %s\n\n", f.Package)
	writeImports(&b, f.Imports)
	for _, c := range f.Contracts {
		writeStub(&b, c, f.TaskName)
	}
	writeInit(&b, f.Contracts)

	out, err := format.Source(b.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated code for %s: %w", f.Path, err)
	}
	return out, nil
}

// GenerateFile parses path and writes its stubs next to it. It returns
// the written path, or "" when path declares no contracts.
func GenerateFile(path string) (string, error) {
	f, err := ParseFile(path, nil)
	if err != nil {
		return "", err
	}
	src, err := Generate(f)
	if err != nil || src == nil {
		return "", err
	}
	out := OutputPath(path)
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func writeImports(b *bytes.Buffer, imports []*Import) {
	var lines []string
	for _, imp := range imports {
		if !imp.used || imp.Path == contractPath || imp.Path == proxyPath {
			continue
		}
		line := strconv.Quote(imp.Path)
		if imp.Name != "" {
			line = imp.Name + " " + line
		}
		lines = append(lines, line)
	}
	lines = append(lines, strconv.Quote(contractPath), strconv.Quote(proxyPath))
	sort.Strings(lines)
	b.WriteString("import (\n")
	for _, l := range lines {
		b.WriteString("\t" + l + "\n")
	}
	b.WriteString(")\n\n")
}

func writeStub(b *bytes.Buffer, c Contract, taskName string) {
	stub := stubName(c.Name)
	fmt.Fprintf(b, "type %s struct {\n\tic  proxy.Interceptor\n\tops []*contract.Operation\n}\n\n", stub)
	fmt.Fprintf(b, "func new%s(ic proxy.Interceptor, ops []*contract.Operation) any {\n", upperFirst(stub))
	fmt.Fprintf(b, "\treturn &%s{ic: ic, ops: ops}\n}\n\n", stub)

	for i, op := range c.Operations {
		params := make([]string, len(op.Params))
		args := make([]string, len(op.Params))
		for j, t := range op.Params {
			params[j] = fmt.Sprintf("p%d %s", j, t)
			args[j] = fmt.Sprintf("p%d", j)
		}
		argv := "nil"
		if len(args) > 0 {
			argv = "[]any{" + strings.Join(args, ", ") + "}"
		}
		call := fmt.Sprintf("s.ic.Intercept(s, s.ops[%d], %s)", i, argv)

		fmt.Fprintf(b, "func (s *%s) %s(%s) ", stub, op.Name, strings.Join(params, ", "))
		switch op.Shape {
		case ShapeError:
			fmt.Fprintf(b, "error {\n\t_, err := %s\n\treturn err\n}\n\n", call)
		case ShapeSync:
			fmt.Fprintf(b, "(%s, error) {\n\tres, err := %s\n\treturn proxy.As[%s](res), err\n}\n\n", op.Result, call, op.Result)
		case ShapeDeferred:
			fmt.Fprintf(b, "%s.Task[%s] {\n\treturn proxy.Task[%s](%s)\n}\n\n", taskName, op.Result, op.Result, call)
		case ShapeFuture:
			fmt.Fprintf(b, "*%s.Future[%s] {\n\treturn proxy.Future[%s](%s)\n}\n\n", taskName, op.Result, op.Result, call)
		}
	}
}

func writeInit(b *bytes.Buffer, contracts []Contract) {
	b.WriteString("func init() {\n")
	for _, c := range contracts {
		fmt.Fprintf(b, "\tproxy.RegisterStub[%s](proxy.Stub{\n", c.Name)
		if c.Tag != "" {
			fmt.Fprintf(b, "\t\tTag: %s,\n", quote(c.Tag))
		}
		b.WriteString("\t\tOperations: []contract.OperationSpec{\n")
		for _, op := range c.Operations {
			if op.Tag == "" {
				fmt.Fprintf(b, "\t\t\t{Name: %q},\n", op.Name)
				continue
			}
			fmt.Fprintf(b, "\t\t\t{Name: %q, Tag: %s},\n", op.Name, quote(op.Tag))
		}
		b.WriteString("\t\t},\n")
		fmt.Fprintf(b, "\t\tNew: new%s,\n\t})\n", upperFirst(stubName(c.Name)))
	}
	b.WriteString("}\n")
}

// quote prefers raw strings, which keep tags readable.
func quote(s string) string {
	if strings.ContainsAny(s, "`\n") {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}

func stubName(name string) string {
	r, n := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[n:] + "Stub"
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}
