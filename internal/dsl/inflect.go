package dsl

import "strings"

// Singularize applies the minimal English rule set Mongoid accessors need:
// "categories" -> "category", "posts" -> "post", anything else unchanged.
func Singularize(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return strings.TrimSuffix(name, "ies") + "y"
	case strings.HasSuffix(name, "s"):
		return strings.TrimSuffix(name, "s")
	}
	return name
}

// Camelize joins underscore-delimited words, capitalizing each:
// "author_info" -> "AuthorInfo".
func Camelize(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(strings.ToLower(word[1:]))
	}
	return b.String()
}

// ClassifyName derives a model class name from an association name.
func ClassifyName(association string) string {
	return Camelize(Singularize(association))
}
