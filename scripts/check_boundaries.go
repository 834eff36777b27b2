package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "wrightstv"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists what a context layer may import besides the standard
// library. Prefixes are relative to the owning service unless external.
type layerRule struct {
	name          string
	ownLayers     []string
	external      []string
	noInfraImport bool
}

var layerRules = map[string]layerRule{
	"domain": {
		name:          "domain",
		ownLayers:     []string{"domain"},
		external:      []string{"github.com/pkg/errors"},
		noInfraImport: true,
	},
	"application": {
		name:          "application",
		ownLayers:     []string{"application", "domain", "ports"},
		external:      []string{modulePath + "/contracts"},
		noInfraImport: true,
	},
	"ports": {
		name:          "ports",
		ownLayers:     []string{"domain"},
		external:      []string{modulePath + "/contracts"},
		noInfraImport: true,
	},
}

func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation
	base := filepath.Dir(filepath.Clean(root))

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		normalized := filepath.ToSlash(rel)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		violations = append(violations, validateFile(path, normalized, parts[3], servicePrefix)...)
		return nil
	})

	return violations
}

func validateFile(path string, normalizedPath string, layer string, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	rule, layered := layerRules[layer]
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		report := func(reason string) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   reason,
			})
		}

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, servicePrefix) {
			report("cross-module imports are forbidden")
		}
		if !layered {
			continue
		}
		if strings.Contains(importPath, "/adapters/") {
			report(rule.name + " must not import adapters")
		}
		if rule.noInfraImport && hasPrefix(importPath, modulePath+"/internal") {
			report(rule.name + " must not import runtime infrastructure")
		}
		if !isStdlib(importPath) && !isAllowed(importPath, rule.allowed(servicePrefix)) {
			report(rule.name + " import is outside explicit allowlist")
		}
	}

	return violations
}

func (r layerRule) allowed(servicePrefix string) []string {
	out := make([]string, 0, len(r.ownLayers)+len(r.external))
	for _, layer := range r.ownLayers {
		out = append(out, servicePrefix+"/"+layer)
	}
	return append(out, r.external...)
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
