package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeCategory is the language-neutral role of a raw syntax node kind.
type NodeCategory int

const (
	CategoryUnrecognized NodeCategory = iota
	CategoryFunction
	CategoryClass
	CategoryContainer // holds methods for a type declared elsewhere (Rust impl)
	CategoryWrapper   // transparent wrapper around a definition (decorated, exported)
	CategoryDecorator
	CategoryComment
	CategoryImport
	CategoryCall
)

var categoryNames = [...]string{
	CategoryUnrecognized: "unrecognized",
	CategoryFunction:     "function",
	CategoryClass:        "class",
	CategoryContainer:    "container",
	CategoryWrapper:      "wrapper",
	CategoryDecorator:    "decorator",
	CategoryComment:      "comment",
	CategoryImport:       "import",
	CategoryCall:         "call",
}

func (c NodeCategory) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unrecognized"
}

type docMode int

const (
	docFirstStatement docMode = iota // bare string literal as the first body statement
	docLeadingComment                // contiguous comment block above the definition
)

// paramRule describes how one parameter node kind yields a Parameter.
type paramRule struct {
	nameField  string // field holding the name node; empty means the node itself
	nameKind   string // every named child of this kind is a name (grouped declarations)
	firstChild bool   // the first named child is the name
	typeField  string
	valueField string
	prefix     string // "*" for rest, "**" for keyword-rest
	receiver   bool
}

// langRules is the extraction table for one language. The traversal code in
// extract.go is shared; a new language only needs a new entry in rulesByLang.
type langRules struct {
	categories map[string]NodeCategory

	nameField   string
	bodyField   string
	paramsField string
	returnField string

	// containerNameField names the field of a CategoryContainer node that
	// holds the type its methods belong to.
	containerNameField string
	// containerTraitField names the implemented trait of a container, which
	// becomes a parent of the container's type.
	containerTraitField string
	// declaratorKinds lend their "name" field to an unnamed function value
	// (const handler = () => {}, or a class field holding an arrow function).
	declaratorKinds map[string]bool
	// classFilter rejects class-like candidates, e.g. Go type specs that are
	// neither structs nor interfaces.
	classFilter func(n *tree_sitter.Node) bool
	// abstractKinds are class-like kinds that are abstract by construction.
	abstractKinds map[string]bool
	// abstractType catches abstract types that share a kind with concrete
	// ones (Go interfaces are type_spec nodes like structs).
	abstractType func(n *tree_sitter.Node) bool
	// abstractMethodKinds mark a method as abstract (bodiless signatures).
	abstractMethodKinds map[string]bool

	// receiverParent derives a method's owner from the definition itself.
	receiverParent func(n *tree_sitter.Node, src []byte) string
	bases          func(n *tree_sitter.Node, src []byte) []string

	params        map[string]paramRule
	splatKinds    map[string]string // name-node kind -> prefix
	receiverNames map[string]bool

	// calleeFields maps call kinds to the field holding the callee expression.
	calleeFields map[string]string
	// memberFields maps member-access kinds to the field holding the final
	// identifier segment.
	memberFields map[string]string
	identKinds   map[string]bool
	// modifierKinds are wrapper nodes that may contain the async keyword.
	modifierKinds map[string]bool
	// accessorTokens mark getter definitions as properties.
	accessorTokens map[string]bool

	docMode       docMode
	passKinds     map[string]bool
	stringKinds   map[string]bool
	exprStmtKinds map[string]bool
}

func (r *langRules) category(kind string) NodeCategory {
	if c, ok := r.categories[kind]; ok {
		return c
	}
	return CategoryUnrecognized
}

// CategoryOf reports the category a language's rule table assigns to a raw
// node kind. Unknown kinds and languages map to CategoryUnrecognized.
func CategoryOf(lang Language, kind string) NodeCategory {
	r, ok := rulesByLang[lang]
	if !ok {
		return CategoryUnrecognized
	}
	return r.category(kind)
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var rulesByLang = map[Language]*langRules{
	LangPython:     pythonRules,
	LangGo:         goRules,
	LangTypeScript: typeScriptRules,
	LangRust:       rustRules,
}

var pythonRules = &langRules{
	categories: map[string]NodeCategory{
		"function_definition":     CategoryFunction,
		"class_definition":        CategoryClass,
		"decorated_definition":    CategoryWrapper,
		"decorator":               CategoryDecorator,
		"comment":                 CategoryComment,
		"import_statement":        CategoryImport,
		"import_from_statement":   CategoryImport,
		"future_import_statement": CategoryImport,
		"call":                    CategoryCall,
	},
	nameField:   "name",
	bodyField:   "body",
	paramsField: "parameters",
	returnField: "return_type",
	bases:       pythonBases,
	params: map[string]paramRule{
		"identifier":               {},
		"typed_parameter":          {firstChild: true, typeField: "type"},
		"default_parameter":        {nameField: "name", valueField: "value"},
		"typed_default_parameter":  {nameField: "name", typeField: "type", valueField: "value"},
		"list_splat_pattern":       {},
		"dictionary_splat_pattern": {},
	},
	splatKinds:    map[string]string{"list_splat_pattern": "*", "dictionary_splat_pattern": "**"},
	receiverNames: set("self", "cls"),
	calleeFields:  map[string]string{"call": "function"},
	memberFields:  map[string]string{"attribute": "attribute"},
	identKinds:    set("identifier"),
	docMode:       docFirstStatement,
	passKinds:     set("pass_statement"),
	stringKinds:   set("string", "concatenated_string"),
	exprStmtKinds: set("expression_statement"),
}

var goRules = &langRules{
	categories: map[string]NodeCategory{
		"function_declaration": CategoryFunction,
		"method_declaration":   CategoryFunction,
		"type_spec":            CategoryClass,
		"type_declaration":     CategoryWrapper,
		"comment":              CategoryComment,
		"import_spec":          CategoryImport,
		"call_expression":      CategoryCall,
	},
	nameField:      "name",
	bodyField:      "body",
	paramsField:    "parameters",
	returnField:    "result",
	classFilter:    goClassFilter,
	abstractType:   goInterface,
	receiverParent: goReceiverType,
	bases:          goEmbeddedTypes,
	params: map[string]paramRule{
		"parameter_declaration":          {nameKind: "identifier", typeField: "type"},
		"variadic_parameter_declaration": {nameField: "name", typeField: "type", prefix: "*"},
	},
	calleeFields: map[string]string{"call_expression": "function"},
	memberFields: map[string]string{"selector_expression": "field"},
	identKinds:   set("identifier", "field_identifier"),
	docMode:      docLeadingComment,
}

var typeScriptRules = &langRules{
	categories: map[string]NodeCategory{
		"function_declaration":           CategoryFunction,
		"generator_function_declaration": CategoryFunction,
		"function_expression":            CategoryFunction,
		"arrow_function":                 CategoryFunction,
		"method_definition":              CategoryFunction,
		"method_signature":               CategoryFunction,
		"abstract_method_signature":      CategoryFunction,
		"class_declaration":              CategoryClass,
		"abstract_class_declaration":     CategoryClass,
		"class":                          CategoryClass,
		"interface_declaration":          CategoryClass,
		"export_statement":               CategoryWrapper,
		"decorator":                      CategoryDecorator,
		"comment":                        CategoryComment,
		"import_statement":               CategoryImport,
		"call_expression":                CategoryCall,
		"new_expression":                 CategoryCall,
	},
	nameField:           "name",
	bodyField:           "body",
	paramsField:         "parameters",
	returnField:         "return_type",
	declaratorKinds:     set("variable_declarator", "public_field_definition"),
	abstractKinds:       set("abstract_class_declaration", "interface_declaration"),
	abstractMethodKinds: set("abstract_method_signature"),
	bases:               typeScriptBases,
	params: map[string]paramRule{
		"required_parameter": {nameField: "pattern", typeField: "type", valueField: "value"},
		"optional_parameter": {nameField: "pattern", typeField: "type", valueField: "value"},
	},
	splatKinds:     map[string]string{"rest_pattern": "*"},
	receiverNames:  set("this"),
	calleeFields:   map[string]string{"call_expression": "function", "new_expression": "constructor"},
	memberFields:   map[string]string{"member_expression": "property"},
	identKinds:     set("identifier", "property_identifier"),
	accessorTokens: set("get"),
	docMode:        docLeadingComment,
}

var rustRules = &langRules{
	categories: map[string]NodeCategory{
		"function_item":            CategoryFunction,
		"function_signature_item":  CategoryFunction,
		"struct_item":              CategoryClass,
		"enum_item":                CategoryClass,
		"trait_item":               CategoryClass,
		"impl_item":                CategoryContainer,
		"attribute_item":           CategoryDecorator,
		"line_comment":             CategoryComment,
		"block_comment":            CategoryComment,
		"use_declaration":          CategoryImport,
		"extern_crate_declaration": CategoryImport,
		"call_expression":          CategoryCall,
		"macro_invocation":         CategoryCall,
	},
	nameField:           "name",
	bodyField:           "body",
	paramsField:         "parameters",
	returnField:         "return_type",
	containerNameField:  "type",
	containerTraitField: "trait",
	abstractKinds:       set("trait_item"),
	abstractMethodKinds: set("function_signature_item"),
	bases:               rustSupertraits,
	params: map[string]paramRule{
		"parameter":      {nameField: "pattern", typeField: "type"},
		"self_parameter": {receiver: true},
	},
	calleeFields: map[string]string{"call_expression": "function", "macro_invocation": "macro"},
	memberFields: map[string]string{
		"field_expression":  "field",
		"scoped_identifier": "name",
		"generic_function":  "function",
	},
	identKinds:    set("identifier", "field_identifier"),
	modifierKinds: set("function_modifiers"),
	docMode:       docLeadingComment,
}

// --- Language hooks ---

func pythonBases(n *tree_sitter.Node, src []byte) []string {
	supers := n.ChildByFieldName("superclasses")
	if supers == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < supers.NamedChildCount(); i++ {
		c := supers.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier", "attribute", "subscript":
			out = append(out, c.Utf8Text(src))
		case "keyword_argument":
			// metaclass=ABCMeta is kept verbatim so the abstractness
			// heuristic can see it.
			if name := c.ChildByFieldName("name"); name != nil && name.Utf8Text(src) == "metaclass" {
				out = append(out, c.Utf8Text(src))
			}
		}
	}
	return out
}

func goClassFilter(n *tree_sitter.Node) bool {
	t := n.ChildByFieldName("type")
	if t == nil {
		return false
	}
	k := t.Kind()
	return k == "struct_type" || k == "interface_type"
}

func goInterface(n *tree_sitter.Node) bool {
	t := n.ChildByFieldName("type")
	return t != nil && t.Kind() == "interface_type"
}

// goReceiverType returns the base type name of a method receiver, stripping
// pointers and type parameters.
func goReceiverType(n *tree_sitter.Node, src []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := uint(0); i < recv.NamedChildCount(); i++ {
		decl := recv.NamedChild(i)
		if decl == nil || decl.Kind() != "parameter_declaration" {
			continue
		}
		t := decl.ChildByFieldName("type")
		for t != nil {
			switch t.Kind() {
			case "pointer_type":
				t = t.NamedChild(0)
			case "generic_type":
				t = t.ChildByFieldName("type")
			case "type_identifier":
				return t.Utf8Text(src)
			default:
				return ""
			}
		}
	}
	return ""
}

// goEmbeddedTypes lists embedded struct fields and embedded interfaces.
func goEmbeddedTypes(n *tree_sitter.Node, src []byte) []string {
	t := n.ChildByFieldName("type")
	if t == nil {
		return nil
	}
	var out []string
	switch t.Kind() {
	case "struct_type":
		for i := uint(0); i < t.NamedChildCount(); i++ {
			list := t.NamedChild(i)
			if list == nil || list.Kind() != "field_declaration_list" {
				continue
			}
			for j := uint(0); j < list.NamedChildCount(); j++ {
				field := list.NamedChild(j)
				if field == nil || field.Kind() != "field_declaration" || field.ChildByFieldName("name") != nil {
					continue
				}
				if ft := field.ChildByFieldName("type"); ft != nil {
					out = append(out, strings.TrimPrefix(ft.Utf8Text(src), "*"))
				}
			}
		}
	case "interface_type":
		for i := uint(0); i < t.NamedChildCount(); i++ {
			elem := t.NamedChild(i)
			if elem != nil && elem.Kind() == "type_elem" {
				out = append(out, elem.Utf8Text(src))
			}
		}
	}
	return out
}

func typeScriptBases(n *tree_sitter.Node, src []byte) []string {
	var out []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "class_heritage":
			for j := uint(0); j < c.NamedChildCount(); j++ {
				out = append(out, heritageNames(c.NamedChild(j), src)...)
			}
		case "extends_type_clause":
			out = append(out, heritageNames(c, src)...)
		}
	}
	return out
}

func heritageNames(clause *tree_sitter.Node, src []byte) []string {
	if clause == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		c := clause.NamedChild(i)
		if c == nil || c.Kind() == "type_arguments" {
			continue
		}
		name := c.Utf8Text(src)
		if idx := strings.IndexByte(name, '<'); idx >= 0 {
			name = name[:idx]
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func rustSupertraits(n *tree_sitter.Node, src []byte) []string {
	bounds := n.ChildByFieldName("bounds")
	if bounds == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < bounds.NamedChildCount(); i++ {
		if b := bounds.NamedChild(i); b != nil {
			out = append(out, b.Utf8Text(src))
		}
	}
	return out
}
