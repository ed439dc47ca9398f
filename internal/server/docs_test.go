package server

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var routerAnnotation = regexp.MustCompile(`@Router\s+(\S+)\s+\[(\w+)\]`)

// handlerDocs maps every exported *Server handler in the *_handlers.go files
// to its doc comment.
func handlerDocs(t *testing.T) map[string]string {
	t.Helper()
	files, err := filepath.Glob("*_handlers.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	docs := map[string]string{}
	fset := token.NewFileSet()
	for _, name := range files {
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		require.NoError(t, err)
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || !fn.Name.IsExported() {
				continue
			}
			docs[fn.Name.Name] = fn.Doc.Text()
		}
	}
	return docs
}

func normalizeRoute(method, path string) string {
	path = strings.TrimRight(path, "/")
	path = regexp.MustCompile(`\{(\w+)\}`).ReplaceAllString(path, ":$1")
	return strings.ToUpper(method) + " " + path
}

func TestHandlers_AnnotatedForAPIDocs(t *testing.T) {
	h := newHarness(t)

	registered := map[string]bool{}
	for _, r := range h.app.GetRoutes(true) {
		registered[normalizeRoute(r.Method, r.Path)] = true
	}

	docs := handlerDocs(t)
	for name, doc := range docs {
		assert.Contains(t, doc, "@Summary", name)
		m := routerAnnotation.FindStringSubmatch(doc)
		if !assert.NotNil(t, m, "%s has no @Router", name) {
			continue
		}
		route := normalizeRoute(m[2], "/api"+m[1])
		assert.True(t, registered[route], "%s documents %s, which is not registered", name, route)
	}
	assert.Contains(t, docs, "SearchUsers")
	assert.Contains(t, docs, "GetUserByHandle")
}
