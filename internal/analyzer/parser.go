package analyzer

import (
	"strconv"
)

// LineParser 把一条原始日志行解析为 URL 与耗时,对任何输入都不会失败
// LineParser turns one raw log line into a ParsedLine. It is total:
// every input, including empty strings and binary noise, yields either
// a ParsedLine or a calm false; access logs are operationally noisy
// and a single bad line must never take the run down.
type LineParser struct {
	line    Matcher
	request Matcher
}

// NewLineParser returns a parser over the process-wide patterns.
func NewLineParser() *LineParser {
	return &LineParser{line: LinePattern, request: RequestPattern}
}

// ParseLine classifies raw as well-formed or malformed. The boolean is
// true only when the line matched, its request string split into
// method/url/protocol, and its request-time token read as a float.
func (p *LineParser) ParseLine(raw string) (ParsedLine, bool) {
	caps, ok := p.line.Match(raw)
	if !ok {
		return ParsedLine{}, false
	}

	// The line pattern legally captures an empty request-time token;
	// a record without a duration carries no signal for us.
	request := caps["request"]
	rawTime := caps["request_time"]
	if request == "" || rawTime == "" {
		return ParsedLine{}, false
	}

	reqCaps, ok := p.request.Match(request)
	if !ok {
		return ParsedLine{}, false
	}

	duration, err := strconv.ParseFloat(rawTime, 64)
	if err != nil {
		// The token pattern admits a lone ".", which is not a number.
		return ParsedLine{}, false
	}

	return ParsedLine{URL: reqCaps["url"], Duration: duration}, true
}
