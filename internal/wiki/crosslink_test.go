package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/codewiki/internal/graph"
)

func shopLinker(t *testing.T) *CrossLinker {
	t.Helper()
	b := NewRegistryBuilder()
	b.RegisterFromChunks([]graph.Chunk{
		{Kind: graph.ChunkKindClass, Name: "BaseModel", FilePath: "src/shop/models.py"},
		{Kind: graph.ChunkKindClass, Name: "Product", FilePath: "src/shop/models.py"},
		{Kind: graph.ChunkKindMethod, Name: "validate", ParentName: "Product", FilePath: "src/shop/models.py"},
		{Kind: graph.ChunkKindFunction, Name: "format_label", FilePath: "src/shop/models.py"},
	}, "models.md")
	b.RegisterFromChunks([]graph.Chunk{
		{Kind: graph.ChunkKindClass, Name: "CartService", FilePath: "src/shop/services.py"},
		{Kind: graph.ChunkKindMethod, Name: "checkout", ParentName: "CartService", FilePath: "src/shop/services.py"},
	}, "api/services.md")
	return NewCrossLinker(b.Build())
}

func TestCrossLinker_Rewrite(t *testing.T) {
	cl := shopLinker(t)
	tests := []struct {
		name string
		page Page
		want string
	}{
		{
			name: "backticked bare and dotted names",
			page: Page{Path: "api/services.md", Content: "The `Product` class wraps `shop.models.Product`.\n"},
			want: "The [`Product`](../models.md) class wraps `shop.models.`[`Product`](../models.md).\n",
		},
		{
			name: "call parentheses are kept",
			page: Page{Path: "api/services.md", Content: "Use `format_label()` and `shop.format_label()`.\n"},
			want: "Use [`format_label()`](../models.md) and `shop.`[`format_label()`](../models.md).\n",
		},
		{
			name: "entities on the same page are not linked",
			page: Page{Path: "api/services.md", Content: "`CartService` relies on `Product`.\n"},
			want: "`CartService` relies on [`Product`](../models.md).\n",
		},
		{
			name: "unknown names and commands stay",
			page: Page{Path: "api/services.md", Content: "Run `go test ./...` or `Missing`.\n"},
			want: "Run `go test ./...` or `Missing`.\n",
		},
		{
			name: "spaced alias as whole words",
			page: Page{Path: "api/services.md", Content: "Every Base Model validates; Base Models do not match.\n"},
			want: "Every [Base Model](../models.md) validates; Base Models do not match.\n",
		},
		{
			name: "alias of an entity on the same page",
			page: Page{Path: "api/services.md", Content: "The Cart Service checks out.\n"},
			want: "The Cart Service checks out.\n",
		},
		{
			name: "fenced code is untouched",
			page: Page{Path: "guide.md", Content: "```python\nProduct().validate()  # `Product` Base Model\n```\n"},
			want: "```python\nProduct().validate()  # `Product` Base Model\n```\n",
		},
		{
			name: "existing links are kept",
			page: Page{Path: "guide.md", Content: "See [`Product`](other.md) and [the Base Model](x.md).\n"},
			want: "See [`Product`](other.md) and [the Base Model](x.md).\n",
		},
		{
			name: "reference links and definitions are kept",
			page: Page{Path: "guide.md", Content: "See [`Product`][p], [Base Model][] and [`Product`].\n\n[p]: models.md \"`Product` and Base Model\"\n"},
			want: "See [`Product`][p], [Base Model][] and [`Product`].\n\n[p]: models.md \"`Product` and Base Model\"\n",
		},
		{
			name: "raw html is kept",
			page: Page{Path: "guide.md", Content: "<a href=\"x\">Base Model</a>, <img alt=\"Base Model\"> <!-- Base Model --> then Base Model.\n"},
			want: "<a href=\"x\">Base Model</a>, <img alt=\"Base Model\"> <!-- Base Model --> then [Base Model](models.md).\n",
		},
		{
			name: "class section resolves methods first",
			page: Page{Path: "guide.md", Content: "## class CartService\nCall `checkout` then `validate`.\n## Other\n`checkout` again.\n"},
			want: "## class CartService\nCall [`checkout`](api/services.md) then [`validate`](models.md).\n## Other\n[`checkout`](api/services.md) again.\n",
		},
		{
			name: "double backtick spans",
			page: Page{Path: "guide.md", Content: "Literal ``Product`` here.\n"},
			want: "Literal [``Product``](models.md) here.\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cl.Rewrite(tt.page)
			assert.Equal(t, tt.page.Path, got.Path)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestCrossLinker_Idempotent(t *testing.T) {
	cl := shopLinker(t)
	page := Page{Path: "api/services.md", Content: "# Services\n" +
		"The `Product` and `shop.models.Product` types, each a Base Model.\n" +
		"See [`Product`][ref] and <a href=\"x\">Base Model</a>.\n\n" +
		"[ref]: ../models.md\n" +
		"```\n`Product`\n```\n" +
		"## class Product\n`validate` it.\n"}

	once := cl.Rewrite(page)
	assert.NotEqual(t, page.Content, once.Content)
	assert.Contains(t, once.Content, "See [`Product`][ref] and <a href=\"x\">Base Model</a>.\n\n[ref]: ../models.md\n")
	assert.Equal(t, once, cl.Rewrite(once))
}

func TestCrossLinker_MultipleAliasesPreferLongest(t *testing.T) {
	b := NewRegistryBuilder()
	b.RegisterFromChunks([]graph.Chunk{
		{Kind: graph.ChunkKindClass, Name: "UserService"},
		{Kind: graph.ChunkKindClass, Name: "UserServiceClient"},
	}, "users.md")
	cl := NewCrossLinker(b.Build())

	got := cl.Rewrite(Page{Path: "index.md", Content: "A User Service Client wraps the User Service."})
	assert.Equal(t, "A [User Service Client](users.md) wraps the [User Service](users.md).", got.Content)
}

func TestCrossLinker_EmptyRegistry(t *testing.T) {
	cl := NewCrossLinker(NewRegistryBuilder().Build())
	page := Page{Path: "a.md", Content: "Nothing `here` to link.\n"}
	assert.Equal(t, page, cl.Rewrite(page))
}
