package threat

import (
	"strings"
	"testing"
)

func TestScanCleanInput(t *testing.T) {
	catalog := DefaultCatalog()

	for _, text := range []string{
		"Hello, world!",
		"Can you help me reset my password?",
		"The order arrived today, thanks a lot.",
	} {
		if findings := catalog.Scan(text); len(findings) != 0 {
			t.Fatalf("expected no findings for %q, got %+v", text, findings)
		}
	}
}

func TestScanScriptTag(t *testing.T) {
	catalog := DefaultCatalog()

	findings := catalog.Scan(`hello <script>alert(1)</script> world`)
	if len(findings) == 0 {
		t.Fatalf("expected xss finding")
	}
	if findings[0].Category != CategoryXSS {
		t.Fatalf("expected xss first, got %s", findings[0].Category)
	}
	if findings[0].Evidence == "" {
		t.Fatalf("expected evidence snippet")
	}
}

func TestScanCategorySamples(t *testing.T) {
	catalog := DefaultCatalog()

	cases := []struct {
		input    string
		category Category
	}{
		{`<img src=x onerror=alert(1)>`, CategoryXSS},
		{`click javascript:alert(1)`, CategoryXSS},
		{`<iframe src="https://evil.test">`, CategoryXSS},
		{`data:text/html;base64,PHNjcmlwdD4=`, CategoryXSS},
		{`&lt;script&gt;alert(1)&lt;/script&gt;`, CategoryXSS},
		{`1 UNION SELECT password FROM users`, CategorySQLInjection},
		{`' OR 1=1`, CategorySQLInjection},
		{`<?php system($cmd); ?>`, CategoryCodeInjection},
		{`eval(payload)`, CategoryCodeInjection},
		{`../../etc/passwd`, CategoryPathTraversal},
		{`%2e%2e%2fetc%2fpasswd`, CategoryPathTraversal},
		{`*)(&(objectClass=*`, CategoryLDAPInjection},
		{`; rm -rf /tmp/x`, CategoryCommandInjection},
		{`{"age": {"$gt": ""}}`, CategoryNoSQLInjection},
		{`check bit.ly/3xYz now`, CategorySuspicious},
		{strings.Repeat("a", 120), CategorySuspicious},
		{strings.Repeat("Qm", 120), CategorySuspicious},
	}

	for _, tc := range cases {
		finding, ok := catalog.First(tc.input)
		if !ok {
			t.Fatalf("expected finding for %q", tc.input)
		}
		if finding.Category != tc.category {
			t.Fatalf("input %q: expected category %s, got %s", tc.input, tc.category, finding.Category)
		}
	}
}

func TestScanReportsTableOrder(t *testing.T) {
	catalog := DefaultCatalog()

	findings := catalog.Scan(`<script>fetch("../../secret")</script>`)
	if len(findings) < 2 {
		t.Fatalf("expected at least two findings, got %+v", findings)
	}
	if findings[0].Category != CategoryXSS {
		t.Fatalf("expected xss first, got %s", findings[0].Category)
	}

	sawTraversal := false
	for _, f := range findings {
		if f.Category == CategoryPathTraversal {
			sawTraversal = true
		}
	}
	if !sawTraversal {
		t.Fatalf("expected pathTraversal finding, got %+v", findings)
	}
}

func TestScanCategoryReportedOnce(t *testing.T) {
	catalog := DefaultCatalog()

	findings := catalog.Scan(`<script>x</script><iframe onload=go>`)
	count := 0
	for _, f := range findings {
		if f.Category == CategoryXSS {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected xss reported once, got %d", count)
	}
}

func TestScanAllowsImageDataURI(t *testing.T) {
	catalog := DefaultCatalog()

	if findings := catalog.Scan(`see data:image/png;base64,iVBORw0KGgo`); len(findings) != 0 {
		t.Fatalf("expected allowlisted data uri to pass, got %+v", findings)
	}

	finding, ok := catalog.First(`see data:application/pdf;base64,JVBER`)
	if !ok || finding.Category != CategoryXSS {
		t.Fatalf("expected non-image data uri flagged as xss, got %+v ok=%v", finding, ok)
	}
}

func TestEvidenceBounded(t *testing.T) {
	catalog := DefaultCatalog()

	finding, ok := catalog.First(`<script>` + strings.Repeat("x", 500) + `</script>`)
	if !ok {
		t.Fatalf("expected finding")
	}
	if len(finding.Evidence) > maxEvidence {
		t.Fatalf("expected evidence <= %d chars, got %d", maxEvidence, len(finding.Evidence))
	}
}

func TestScanRestartable(t *testing.T) {
	catalog := DefaultCatalog()
	input := `' OR 1=1`

	first := catalog.Scan(input)
	second := catalog.Scan(input)
	if len(first) != len(second) {
		t.Fatalf("expected identical results across scans, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("scan %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
