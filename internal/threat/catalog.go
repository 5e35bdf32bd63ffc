// Package threat classifies chat input against a fixed table of
// pattern rules grouped by category. Pattern matching is a
// defense-in-depth filter, not a guarantee: encodings the rules do not
// normalize can slip past it, so a match means reject but a miss never
// means proven safe.
package threat

import "github.com/chatguard/chatguard/internal/normalize"

const defaultDecodeDepth = 2

// Catalog is the static table of detection rules grouped by category.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	groups []Group
}

func NewCatalog(groups []Group) *Catalog {
	copied := make([]Group, len(groups))
	for i, g := range groups {
		copied[i] = Group{
			Category: g.Category,
			Rules:    append([]Rule(nil), g.Rules...),
		}
	}
	return &Catalog{groups: copied}
}

// DefaultCatalog returns the built-in rule set covering every category.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultGroups())
}

// Scan reports every category with at least one matching rule, in table
// order. Within a group the first matching rule wins and the rest are
// skipped. Scan is a pure function of the input; an empty result means
// the input is clean.
func (c *Catalog) Scan(text string) []Finding {
	var findings []Finding
	for _, g := range c.groups {
		if finding, ok := scanGroup(g, text); ok {
			findings = append(findings, finding)
		}
	}
	return findings
}

// First returns the first matching category in table order. It stops at
// the first hit, so callers that only need a verdict avoid walking the
// remaining groups.
func (c *Catalog) First(text string) (Finding, bool) {
	for _, g := range c.groups {
		if finding, ok := scanGroup(g, text); ok {
			return finding, true
		}
	}
	return Finding{}, false
}

func scanGroup(g Group, text string) (Finding, bool) {
	for _, rule := range g.Rules {
		input := applyTransforms(text, rule.Transforms)
		matched, evidence := rule.Matcher.Match(input)
		if !matched {
			continue
		}
		return Finding{Category: g.Category, Evidence: evidence}, true
	}
	return Finding{}, false
}

func applyTransforms(input string, transforms []Transform) string {
	if len(transforms) == 0 {
		return input
	}

	opts := normalize.Options{MaxDecodeDepth: defaultDecodeDepth}
	for _, transform := range transforms {
		switch transform {
		case TransformLowercase:
			opts.Lowercase = true
		case TransformHTMLEntity:
			opts.HTMLEntity = true
		case TransformPercentDecode:
			opts.PercentDecode = true
		}
	}

	return normalize.Apply(input, opts).Normalized
}
