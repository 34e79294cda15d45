package version

// Populated at build time via -ldflags.
// 构建时通过 -ldflags 注入。
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
