package analyzer

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"time"

	"github.com/livp123/logsift/internal/utils/logger"
)

// dateLayout is the calendar form of the embedded date token.
const dateLayout = "20060102"

// Locate 在目录树中挑选内嵌日期最新的访问日志文件
// Locate walks the tree under dir, keeps the file names matching the
// shell-style glob that also carry a parseable embedded date, and
// returns the candidate with the most recent date. A strictly more
// recent date wins; ties keep the first file seen, since walk order is
// not guaranteed. A nil LogFile with a nil error means no work to do:
// an empty dir argument, a missing directory and a directory without
// matching names all land here.
func Locate(ctx context.Context, dir, glob string) (*LogFile, error) {
	log := logger.Get(ctx)

	if dir == "" {
		return nil, nil
	}

	var best *LogFile
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			// Unreadable entries shrink the candidate set, they do not
			// abort the scan. A missing root lands here too and leaves
			// the run with nothing to do.
			log.Debugf("Skipping unreadable path %s: %v", p, walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		ok, matchErr := path.Match(glob, name)
		if matchErr != nil {
			// A glob that does not compile is a configuration mistake,
			// not a property of any one file.
			return matchErr
		}
		if !ok {
			return nil
		}

		caps, ok := DatePattern.Match(name)
		if !ok {
			log.Debugf("Candidate %s carries no date token, skipping", name)
			return nil
		}
		date, parseErr := time.Parse(dateLayout, caps["date"])
		if parseErr != nil {
			log.Debugf("Candidate %s has unparseable date token %q, skipping", name, caps["date"])
			return nil
		}

		if best == nil || date.After(best.Date) {
			best = &LogFile{Name: name, Path: p, Date: date}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if best != nil {
		log.Infof("📂 Located log %s dated %s", best.Path, best.Date.Format("2006-01-02"))
	}
	return best, nil
}
