package threat

// ShortenerHosts lists URL-shortener domains treated as suspicious in
// chat content. Shared with the URL sanitizer.
var ShortenerHosts = []string{
	"bit.ly",
	"tinyurl.com",
	"goo.gl",
	"t.co",
	"is.gd",
	"ow.ly",
	"buff.ly",
	"rb.gy",
	"cutt.ly",
}

var allowedDataTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
}

func defaultGroups() []Group {
	return []Group{
		{
			Category: CategoryXSS,
			Rules: []Rule{
				{Matcher: MustRegexMatcher(`(?i)<script\b[^>]*>[\s\S]*?</script\s*>`)},
				{Matcher: MustRegexMatcher(`(?i)<\s*script\b`)},
				{
					Transforms: []Transform{TransformHTMLEntity},
					Matcher:    MustRegexMatcher(`(?i)<\s*script\b`),
				},
				{Matcher: MustRegexMatcher(`(?i)\b(?:javascript|vbscript)\s*:`)},
				{Matcher: MustRegexMatcher(`(?i)\bon\w+\s*=`)},
				{Matcher: MustRegexMatcher(`(?i)<\s*(?:iframe|object|embed|link|meta)\b`)},
				{Matcher: MustRegexMatcher(`(?i)(?:\bexpression\s*\(|@import\b)`)},
				{Matcher: NewDataURIMatcher(allowedDataTypes)},
			},
		},
		{
			Category: CategorySQLInjection,
			Rules: []Rule{
				{Matcher: MustRegexMatcher(`(?i)\b(?:select|insert|update|delete|drop|union|create|alter|truncate|exec)\b[\s\S]{0,200}?\b(?:from|into|table|database|where|values|set)\b`)},
				{
					Transforms: []Transform{TransformLowercase},
					Matcher: MustKeywordMatcher([]string{
						"union select",
						"drop table",
						"delete from",
						"insert into",
						"truncate table",
						"information_schema",
						"waitfor delay",
						"xp_cmdshell",
						"sleep(",
						"benchmark(",
					}),
				},
				{Matcher: MustRegexMatcher(`(?i)\b(?:or|and)\s+(?:\d+\s*=\s*\d+|'[^']*'\s*=\s*'[^']*'|"[^"]*"\s*=\s*"[^"]*")`)},
				{Matcher: MustRegexMatcher(`(?:--|/\*|\*/|#)`)},
			},
		},
		{
			Category: CategoryCodeInjection,
			Rules: []Rule{
				{Matcher: MustRegexMatcher(`(?i)(?:<\?php|<\?=|<%|<\?xml|<!\[CDATA\[)`)},
				{Matcher: MustRegexMatcher(`(?i)\b(?:eval|exec|system|shell_exec|passthru|popen)\s*\(`)},
			},
		},
		{
			Category: CategoryPathTraversal,
			Rules: []Rule{
				{
					Transforms: []Transform{TransformPercentDecode},
					Matcher:    MustRegexMatcher(`\.\.[/\\]`),
				},
				{Matcher: MustRegexMatcher(`(?i)(?:%2e%2e(?:%2f|%5c)|\.\.(?:%2f|%5c)|%2e%2e[/\\])`)},
			},
		},
		{
			Category: CategoryLDAPInjection,
			Rules: []Rule{
				{Matcher: MustRegexMatcher(`\(\s*[&|!]\s*\(`)},
				{Matcher: MustRegexMatcher(`(?i)(?:\)\s*\(\s*[&|!]|\bobjectclass\s*=|\(\s*\w+\s*=\s*\*\s*\))`)},
			},
		},
		{
			Category: CategoryCommandInjection,
			Rules: []Rule{
				{Matcher: MustRegexMatcher(`(?i)[;&|]\s*(?:rm|mv|dd|wget|curl|chmod|chown|mkfifo|nc|ncat|bash|sh|zsh|powershell|cmd)\b`)},
				{Matcher: MustRegexMatcher("(?i)(?:\\$\\(|`)\\s*(?:rm|wget|curl|nc|cat|bash|sh)\\b")},
			},
		},
		{
			Category: CategoryNoSQLInjection,
			Rules: []Rule{
				{Matcher: MustRegexMatcher(`(?i)\$(?:where|ne|gt|lt)\b`)},
			},
		},
		{
			Category: CategorySuspicious,
			Rules: []Rule{
				{Matcher: NewRepeatMatcher(100)},
				{
					Transforms: []Transform{TransformLowercase},
					Matcher:    MustKeywordMatcher(shortenerKeywords()),
				},
				{Matcher: MustRegexMatcher(`[A-Za-z0-9+/=]{200,}`)},
			},
		},
	}
}

func shortenerKeywords() []string {
	keywords := make([]string, 0, len(ShortenerHosts))
	for _, host := range ShortenerHosts {
		keywords = append(keywords, host+"/")
	}
	return keywords
}
