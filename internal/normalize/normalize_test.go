package normalize

import "testing"

func TestApplyDecodeDepth(t *testing.T) {
	res := Apply("%252e%252e%252f", Options{PercentDecode: true, MaxDecodeDepth: 2})
	if res.Normalized != "../" {
		t.Fatalf("expected full decode at depth 2, got %q", res.Normalized)
	}

	res = Apply("%25252e%25252e%25252f", Options{PercentDecode: true, MaxDecodeDepth: 2})
	if res.Normalized != "%2e%2e%2f" {
		t.Fatalf("expected partial decode, got %q", res.Normalized)
	}
}

func TestApplyWithoutDecode(t *testing.T) {
	res := Apply("%3CScRipT%3E", Options{Lowercase: true})
	if res.Normalized != "%3cscript%3e" {
		t.Fatalf("expected lowercase without decode, got %q", res.Normalized)
	}
	if res.Raw != "%3CScRipT%3E" {
		t.Fatalf("expected raw preserved, got %q", res.Raw)
	}
}

func TestApplyTransforms(t *testing.T) {
	res := Apply("%3CScRipT%3E", Options{PercentDecode: true, MaxDecodeDepth: 1, Lowercase: true})
	if res.Normalized != "<script>" {
		t.Fatalf("expected lowercase decode, got %q", res.Normalized)
	}

	res = Apply("&lt;div&gt;", Options{HTMLEntity: true})
	if res.Normalized != "<div>" {
		t.Fatalf("expected html decode, got %q", res.Normalized)
	}
}

func TestApplyInvalidEscapeKeepsInput(t *testing.T) {
	res := Apply("50% off ..%2f", Options{PercentDecode: true})
	if res.Normalized != "50% off ..%2f" {
		t.Fatalf("expected undecodable input unchanged, got %q", res.Normalized)
	}
}
