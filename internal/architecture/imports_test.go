package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type violation struct {
	file string
	imp  string
	rule string
}

// walkImports calls visit for every non-test import under internal/.
func walkImports(t *testing.T, visit func(modulePath, rel, imp string)) {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	internalDir := filepath.Join(root, "internal")
	fset := token.NewFileSet()
	walkErr := filepath.WalkDir(internalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			visit(modulePath, filepath.ToSlash(rel), imp)
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
}

func report(t *testing.T, title string, violations []violation) {
	t.Helper()
	if len(violations) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(title + ":\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", v.file, v.imp, v.rule)
	}
	t.Fatal(b.String())
}

func TestImportBoundaries(t *testing.T) {
	var violations []violation
	walkImports(t, func(modulePath, rel, imp string) {
		for _, bad := range disallowedImports(modulePath, layerFor(rel)) {
			if strings.HasPrefix(imp, bad) {
				violations = append(violations, violation{file: rel, imp: imp, rule: bad})
				return
			}
		}
	})
	report(t, "import boundary violations", violations)
}

func TestGinConfinedToHTTPLayer(t *testing.T) {
	var violations []violation
	walkImports(t, func(_, rel, imp string) {
		if !strings.HasPrefix(imp, "github.com/gin-gonic/") {
			return
		}
		if strings.HasPrefix(rel, "internal/http/") || strings.HasPrefix(rel, "internal/app/") {
			return
		}
		violations = append(violations, violation{file: rel, imp: imp, rule: "github.com/gin-gonic/"})
	})
	report(t, "gin imported outside internal/http", violations)
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/domain/"):
		return "domain"
	case strings.HasPrefix(rel, "internal/srs/"),
		strings.HasPrefix(rel, "internal/insights/"),
		strings.HasPrefix(rel, "internal/ratelimit/"):
		return "engine"
	case strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/services/"):
		return "services"
	case strings.HasPrefix(rel, "internal/http/"):
		return "http"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	internal := modulePath + "/internal/"
	switch layer {
	case "platform":
		return []string{
			internal + "domain",
			internal + "srs",
			internal + "insights",
			internal + "ratelimit",
			internal + "data/",
			internal + "services",
			internal + "http/",
			internal + "app",
			internal + "clients/",
		}
	case "domain":
		return []string{
			internal + "srs",
			internal + "insights",
			internal + "ratelimit",
			internal + "data/",
			internal + "services",
			internal + "http/",
			internal + "app",
			internal + "clients/",
		}
	case "engine":
		return []string{
			internal + "data/",
			internal + "services",
			internal + "http/",
			internal + "app",
			internal + "clients/",
		}
	case "data":
		return []string{
			internal + "services",
			internal + "http/",
			internal + "app",
		}
	case "services":
		return []string{
			internal + "http/",
			internal + "app",
		}
	case "http":
		return []string{
			internal + "data/",
			internal + "app",
		}
	default:
		return nil
	}
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
