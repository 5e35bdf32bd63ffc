package threat

import (
	"errors"
	"strings"
)

// KeywordMatcher matches any of a fixed set of keywords in a single pass
// over the input (Aho–Corasick automaton). Keywords are matched byte for
// byte; pair it with the lowercase transform for case-insensitive sets.
type KeywordMatcher struct {
	nodes []keywordNode
}

type keywordNode struct {
	next map[byte]int
	fail int
	out  []string
}

func NewKeywordMatcher(keywords []string) (*KeywordMatcher, error) {
	if len(keywords) == 0 {
		return nil, errors.New("keywords are required")
	}

	nodes := []keywordNode{{next: map[byte]int{}, fail: 0}}
	for _, keyword := range keywords {
		if strings.TrimSpace(keyword) == "" {
			continue
		}
		current := 0
		for i := 0; i < len(keyword); i++ {
			b := keyword[i]
			next, ok := nodes[current].next[b]
			if !ok {
				nodes = append(nodes, keywordNode{next: map[byte]int{}, fail: 0})
				next = len(nodes) - 1
				nodes[current].next[b] = next
			}
			current = next
		}
		nodes[current].out = append(nodes[current].out, keyword)
	}

	if len(nodes) == 1 {
		return nil, errors.New("no usable keywords")
	}

	queue := make([]int, 0)
	for _, next := range nodes[0].next {
		nodes[next].fail = 0
		queue = append(queue, next)
	}

	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]

		for b, next := range nodes[state].next {
			fail := nodes[state].fail
			for fail != 0 {
				if _, ok := nodes[fail].next[b]; ok {
					break
				}
				fail = nodes[fail].fail
			}
			if target, ok := nodes[fail].next[b]; ok {
				nodes[next].fail = target
			} else {
				nodes[next].fail = 0
			}
			nodes[next].out = append(nodes[next].out, nodes[nodes[next].fail].out...)
			queue = append(queue, next)
		}
	}

	return &KeywordMatcher{nodes: nodes}, nil
}

// MustKeywordMatcher panics on an empty keyword set. Intended for static
// rule tables.
func MustKeywordMatcher(keywords []string) *KeywordMatcher {
	m, err := NewKeywordMatcher(keywords)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *KeywordMatcher) Match(input string) (bool, string) {
	state := 0
	for i := 0; i < len(input); i++ {
		b := input[i]
		for state != 0 {
			if _, ok := m.nodes[state].next[b]; ok {
				break
			}
			state = m.nodes[state].fail
		}

		if next, ok := m.nodes[state].next[b]; ok {
			state = next
		}

		if len(m.nodes[state].out) > 0 {
			return true, snippet(m.nodes[state].out[0])
		}
	}

	return false, ""
}
