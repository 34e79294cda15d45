package analyzer

import "regexp"

// Matcher 从一段文本中提取命名捕获字段
// Matcher extracts named capture fields from a piece of text. No
// semantics beyond named-group capture are offered; a non-match yields
// no fields and is never an error.
type Matcher interface {
	Match(text string) (map[string]string, bool)
}

// regexMatcher backs Matcher with a compiled regular expression.
type regexMatcher struct {
	re *regexp.Regexp
}

func (m *regexMatcher) Match(text string) (map[string]string, bool) {
	sub := m.re.FindStringSubmatch(text)
	if sub == nil {
		return nil, false
	}
	caps := make(map[string]string, len(sub))
	for i, name := range m.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		caps[name] = sub[i]
	}
	return caps, true
}

// NewMatcher compiles pattern into a Matcher. It panics on a bad
// pattern and exists for the fixed process-wide patterns below; dynamic
// patterns go through config validation instead.
func NewMatcher(pattern string) Matcher {
	return &regexMatcher{re: regexp.MustCompile(pattern)}
}

// 进程级提取模式,启动时编译一次,全程只读共享
// Process-wide extraction patterns, compiled once at startup and shared
// read-only. All three anchor at the start of the text only: trailing
// garbage is tolerated the same way the log emitters tolerate it.
var (
	// LinePattern decomposes one access-log record into its named
	// fields. Note the double space after remote_user and that the
	// trailing request_time token may legally capture the empty string;
	// rejecting empties is the parser's job, not the pattern's.
	LinePattern = NewMatcher(`^(?P<remote_addr>\S+) (?P<remote_user>\S+)  (?P<real_ip>\S+) \[(?P<time_local>[^]]+)\] "(?P<request>[^"]+)" (?P<status>\S+) (?P<body_bytes_sent>\S+) "(?P<referer>[^"]+)" "(?P<user_agent>[^"]+)" "(?P<forwarded_for>[^"]+)" "(?P<request_id>\S+)" "(?P<rb_user>\S+)" (?P<request_time>[0-9]*\.?[0-9]*)`)

	// RequestPattern splits the raw request string into its method, url
	// and protocol tokens.
	RequestPattern = NewMatcher(`^(?P<method>\w+) (?P<url>\S+) (?P<protocol>\S+)`)

	// DatePattern recognizes rotated access-log names and captures the
	// embedded date token. Seven-digit runs are accepted here on
	// purpose; they fail later when the token does not parse as a
	// calendar date.
	DatePattern = NewMatcher(`^nginx-access-ui\.log-(?P<date>\d{7,8})($|(\.gz))`)
)
