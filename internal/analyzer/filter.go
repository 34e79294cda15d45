package analyzer

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	pkgerrors "github.com/livp123/logsift/pkg/errors"
)

// Env 是行过滤表达式的求值环境
// Env is the environment a line-filter expression evaluates against:
// one parsed line, plus string helpers that operate on its URL.
type Env struct {
	URL      string
	Duration float64
}

var envPool = sync.Pool{
	New: func() interface{} {
		return &Env{}
	},
}

var (
	regexCache sync.Map
	regexCount int64
)

// Reset resets the environment for reuse.
func (e *Env) Reset() {
	e.URL = ""
	e.Duration = 0
}

// Match reports whether the regular expression pattern matches the URL.
// Compiled patterns are cached process-wide, capped at 1000 entries.
func (e *Env) Match(pattern string) bool {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp).MatchString(e.URL)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	if atomic.LoadInt64(&regexCount) < 1000 {
		regexCache.Store(pattern, re)
		atomic.AddInt64(&regexCount, 1)
	}
	return re.MatchString(e.URL)
}

// Contains reports whether the URL contains needle.
func (e *Env) Contains(needle string) bool {
	return strings.Contains(e.URL, needle)
}

// IContains is Contains without case sensitivity.
func (e *Env) IContains(needle string) bool {
	return strings.Contains(strings.ToLower(e.URL), strings.ToLower(needle))
}

// Prefix reports whether the URL starts with prefix.
func (e *Env) Prefix(prefix string) bool {
	return strings.HasPrefix(e.URL, prefix)
}

// Suffix reports whether the URL ends with suffix.
func (e *Env) Suffix(suffix string) bool {
	return strings.HasSuffix(e.URL, suffix)
}

// LineFilter 决定哪些已解析的行参与聚合
// LineFilter decides which parsed lines enter aggregation. Filtered
// lines still count toward the line totals and the malformed gate, they
// just contribute no samples. A nil *LineFilter keeps everything, so
// callers never branch on whether filtering is configured.
type LineFilter struct {
	source  string
	program *vm.Program
}

// CompileLineFilter compiles src into a filter. Empty or blank source
// means no filtering and returns nil. The expression is type-checked
// against Env, so field typos fail here rather than mid-run.
func CompileLineFilter(src string) (*LineFilter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(&Env{}))
	if err != nil {
		return nil, pkgerrors.NewFilterError(src, err)
	}
	return &LineFilter{source: src, program: program}, nil
}

// Keep reports whether the parsed line enters aggregation. Evaluation
// errors and non-boolean results keep the line.
func (f *LineFilter) Keep(url string, duration float64) bool {
	if f == nil {
		return true
	}

	env := envPool.Get().(*Env)
	defer func() {
		env.Reset()
		envPool.Put(env)
	}()

	env.URL = url
	env.Duration = duration

	output, err := expr.Run(f.program, env)
	if err != nil {
		return true
	}
	keep, ok := output.(bool)
	if !ok {
		return true
	}
	return keep
}

// Source returns the original expression text, empty for a nil filter.
func (f *LineFilter) Source() string {
	if f == nil {
		return ""
	}
	return f.source
}
