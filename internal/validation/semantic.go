package validation

import (
	"fmt"
	"strings"
	"time"

	_ "time/tzdata"

	"golang.org/x/text/language"

	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/pkg/schema"
)

// validateSemantic checks what the document schema cannot express: locale
// and time zone names resolve, every referenced extension is registered, and
// let bindings do not refer to bindings declared after them.
func validateSemantic(doc *schema.RenderDocument, lookup ExtensionLookup) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	if doc.Locale != "" {
		if _, err := language.Parse(doc.Locale); err != nil {
			result.AddError("locale", schema.ErrCodeValidation,
				fmt.Sprintf("invalid locale %q: %v", doc.Locale, err))
		}
	}
	if doc.Timezone != "" {
		if _, err := time.LoadLocation(doc.Timezone); err != nil {
			result.AddError("timezone", schema.ErrCodeValidation,
				fmt.Sprintf("unknown time zone %q", doc.Timezone))
		}
	}

	for i := range doc.Template {
		if doc.Template[i].Print != nil {
			validateNode(doc.Template[i].Print, fmt.Sprintf("template[%d].print", i), lookup, result)
		}
	}
	return result
}

// validateNode walks one node and its children.
func validateNode(n *schema.NodeDoc, path string, lookup ExtensionLookup, result *schema.ValidationResult) {
	switch {
	case n.Filter != nil:
		checkExtension(registry.KindFilter, n.Filter.Name, path+".filter.name", lookup, result)
		if n.Filter.Target != nil {
			validateNode(n.Filter.Target, path+".filter.target", lookup, result)
		}
		validateArgs(n.Filter.Args, path+".filter", lookup, result)
	case n.Call != nil:
		checkExtension(registry.KindFunction, n.Call.Name, path+".call.name", lookup, result)
		validateArgs(n.Call.Args, path+".call", lookup, result)
	case n.Test != nil:
		checkExtension(registry.KindTest, n.Test.Name, path+".test.name", lookup, result)
		if n.Test.Target != nil {
			validateNode(n.Test.Target, path+".test.target", lookup, result)
		}
		validateArgs(n.Test.Args, path+".test", lookup, result)
	case n.List != nil:
		for i := range n.List {
			validateNode(&n.List[i], fmt.Sprintf("%s.list[%d]", path, i), lookup, result)
		}
	case n.Map != nil:
		for i := range n.Map {
			validateNode(&n.Map[i].Value, fmt.Sprintf("%s.map[%d].value", path, i), lookup, result)
		}
	case n.Let != nil:
		validateLet(n.Let, path+".let", lookup, result)
	}
}

func validateArgs(args []schema.ArgDoc, path string, lookup ExtensionLookup, result *schema.ValidationResult) {
	for i := range args {
		validateNode(&args[i].Value, fmt.Sprintf("%s.args[%d].value", path, i), lookup, result)
	}
}

// validateLet warns when a binding refers to a name bound later in the same
// let; the reference resolves against the outer scope instead.
func validateLet(let *schema.LetDoc, path string, lookup ExtensionLookup, result *schema.ValidationResult) {
	later := make(map[string]int, len(let.Bindings))
	for i, b := range let.Bindings {
		later[b.Key] = i
	}
	for i := range let.Bindings {
		bpath := fmt.Sprintf("%s.bindings[%d].value", path, i)
		for _, name := range referencedRoots(&let.Bindings[i].Value) {
			if j, ok := later[name]; ok && j >= i {
				result.AddWarning(bpath, schema.ErrCodeValidation,
					fmt.Sprintf("%q is bound at bindings[%d] and is not visible here", name, j))
			}
		}
		validateNode(&let.Bindings[i].Value, bpath, lookup, result)
	}
	if let.Body != nil {
		validateNode(let.Body, path+".body", lookup, result)
	}
}

// referencedRoots lists the first path segment of every variable referenced
// directly in n, without descending into nested lets.
func referencedRoots(n *schema.NodeDoc) []string {
	var roots []string
	var walk func(n *schema.NodeDoc)
	walkArgs := func(args []schema.ArgDoc) {
		for i := range args {
			walk(&args[i].Value)
		}
	}
	walk = func(n *schema.NodeDoc) {
		if n == nil {
			return
		}
		switch {
		case n.Var != "":
			root, _, _ := strings.Cut(n.Var, ".")
			roots = append(roots, root)
		case n.Filter != nil:
			walk(n.Filter.Target)
			walkArgs(n.Filter.Args)
		case n.Call != nil:
			walkArgs(n.Call.Args)
		case n.Test != nil:
			walk(n.Test.Target)
			walkArgs(n.Test.Args)
		case n.List != nil:
			for i := range n.List {
				walk(&n.List[i])
			}
		case n.Map != nil:
			for i := range n.Map {
				walk(&n.Map[i].Value)
			}
		}
	}
	walk(n)
	return roots
}

func checkExtension(kind registry.Kind, name, path string, lookup ExtensionLookup, result *schema.ValidationResult) {
	if lookup == nil || name == "" {
		return
	}
	if !lookup.Has(kind, name) {
		result.AddError(path, schema.ErrCodeUnknownExtension,
			fmt.Sprintf("%s %q not registered", kind, name))
	}
}
