package graph

// Parameter is one declared parameter of a function. Rest parameters carry a
// "*" name prefix and keyword-rest parameters "**".
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Default     string `json:"default,omitempty"` // source text, never evaluated
	Description string `json:"description,omitempty"`
}

// FunctionSignature is a rendering projection of a function or method chunk.
type FunctionSignature struct {
	Name        string      `json:"name"`
	ParentName  string      `json:"parentName,omitempty"`
	Parameters  []Parameter `json:"parameters"`
	ReturnType  string      `json:"returnType,omitempty"`
	Returns     string      `json:"returns,omitempty"`
	Description string      `json:"description,omitempty"`
	Decorators  []string    `json:"decorators,omitempty"`
	IsAsync     bool        `json:"isAsync"`
	IsMethod    bool        `json:"isMethod"`
	IsProperty  bool        `json:"isProperty"`
	IsAbstract  bool        `json:"isAbstract"`
}

// ClassSignature is a rendering projection of a class and its methods.
type ClassSignature struct {
	Name        string              `json:"name"`
	Parents     []string            `json:"parents,omitempty"`
	Description string              `json:"description,omitempty"`
	Decorators  []string            `json:"decorators,omitempty"`
	IsAbstract  bool                `json:"isAbstract"`
	Methods     []FunctionSignature `json:"methods,omitempty"`
	Properties  []FunctionSignature `json:"properties,omitempty"`
}

// NewFunctionSignature builds a signature from a chunk. parentName marks the
// signature as a method; pass "" for free functions. Parameter descriptions
// and types missing from the source are filled from the parsed docstring.
func NewFunctionSignature(c Chunk, parentName string) FunctionSignature {
	doc := ParseDocstring(c.Docstring)
	params := make([]Parameter, 0, len(c.Metadata.Parameters))
	for _, p := range c.Metadata.Parameters {
		pd, ok := doc.Params[p.Name]
		if !ok {
			pd = doc.Params[trimRestPrefix(p.Name)]
		}
		if p.Type == "" {
			p.Type = pd.Type
		}
		if p.Description == "" {
			p.Description = pd.Description
		}
		params = append(params, p)
	}
	return FunctionSignature{
		Name:        c.Name,
		ParentName:  parentName,
		Parameters:  params,
		ReturnType:  c.Metadata.ReturnType,
		Returns:     doc.Returns,
		Description: doc.Description,
		Decorators:  c.Metadata.Decorators,
		IsAsync:     c.Metadata.IsAsync,
		IsMethod:    parentName != "",
		IsProperty:  c.Metadata.IsProperty,
		IsAbstract:  c.Metadata.IsAbstract,
	}
}

// NewClassSignature builds a class signature from its chunk and the method
// chunks linked to it by parent name. Methods of other classes are ignored.
func NewClassSignature(class Chunk, methods []Chunk) ClassSignature {
	sig := ClassSignature{
		Name:        class.Name,
		Parents:     class.Metadata.Parents,
		Description: ParseDocstring(class.Docstring).Description,
		Decorators:  class.Metadata.Decorators,
		IsAbstract:  class.Metadata.IsAbstract,
	}
	for _, m := range methods {
		if m.Kind != ChunkKindMethod || m.ParentName != class.Name {
			continue
		}
		fs := NewFunctionSignature(m, class.Name)
		if fs.IsProperty {
			sig.Properties = append(sig.Properties, fs)
		} else {
			sig.Methods = append(sig.Methods, fs)
		}
	}
	return sig
}

func trimRestPrefix(name string) string {
	for len(name) > 0 && name[0] == '*' {
		name = name[1:]
	}
	return name
}
