package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionValue(t *testing.T) {
	t.Parallel()
	c := call("field", 1, []Arg{sym("score")},
		kw("type", konst("Float")),
		kw("as", sym("s")),
		kw("class_name", str("Comment")),
		kw("inverse_of", Arg{Kind: ArgConstantPath, Value: "::Blog::Post"}),
		kw("default", raw("-> { Time.now }")),
	)

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"type", "Float", true},
		{"as", "s", true},
		{"class_name", "Comment", true},
		{"inverse_of", "Blog::Post", true},
		{"default", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := OptionValue(c, tt.key)
		assert.Equal(t, tt.wantOK, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}

func TestOptionValue_NoKeywordMap(t *testing.T) {
	t.Parallel()
	_, ok := OptionValue(call("field", 1, []Arg{sym("x")}), "type")
	assert.False(t, ok)
	_, ok = OptionSource(call("field", 1, []Arg{sym("x")}), "default")
	assert.False(t, ok)
}

func TestOptionSource(t *testing.T) {
	t.Parallel()
	c := call("field", 1, []Arg{sym("tags")}, kw("default", raw("[]")), kw("as", sym("t")))

	src, ok := OptionSource(c, "default")
	assert.True(t, ok)
	assert.Equal(t, "[]", src)

	src, ok = OptionSource(c, "as")
	assert.True(t, ok)
	assert.Equal(t, ":t", src)
}

func TestInflection(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "category", Singularize("categories"))
	assert.Equal(t, "post", Singularize("posts"))
	assert.Equal(t, "sheep", Singularize("sheep"))
	assert.Equal(t, "AuthorInfo", Camelize("author_info"))
	assert.Equal(t, "Post", Camelize("post"))
	assert.Equal(t, "Reply", ClassifyName("replies"))
}
