package threat

// Category is the coarse classification assigned to an input based on
// which rule group matched. The set is closed and ordered; Scan reports
// categories in the order returned by Categories.
type Category string

const (
	CategoryXSS              Category = "xss"
	CategorySQLInjection     Category = "sqlInjection"
	CategoryCodeInjection    Category = "codeInjection"
	CategoryPathTraversal    Category = "pathTraversal"
	CategoryLDAPInjection    Category = "ldapInjection"
	CategoryCommandInjection Category = "commandInjection"
	CategoryNoSQLInjection   Category = "noSqlInjection"
	CategorySuspicious       Category = "suspicious"
)

func Categories() []Category {
	return []Category{
		CategoryXSS,
		CategorySQLInjection,
		CategoryCodeInjection,
		CategoryPathTraversal,
		CategoryLDAPInjection,
		CategoryCommandInjection,
		CategoryNoSQLInjection,
		CategorySuspicious,
	}
}

type Transform string

const (
	TransformLowercase     Transform = "lowercase"
	TransformHTMLEntity    Transform = "html_entity"
	TransformPercentDecode Transform = "percent_decode"
)

// Rule is one detector within a category group. Any single matching rule
// marks the whole group's category as matched.
type Rule struct {
	Transforms []Transform
	Matcher    Matcher
}

// Group holds the ordered rules for one category.
type Group struct {
	Category Category
	Rules    []Rule
}

// Finding reports a matched category together with a short evidence
// snippet taken from the matching rule.
type Finding struct {
	Category Category
	Evidence string
}

// Matcher returns true if the input matches and an optional evidence snippet.
// Evidence must be a small snippet (max 64 chars).
type Matcher interface {
	Match(input string) (bool, string)
}
