package probe

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/calder-dev/stackstatus/internal/config"
)

// FileCountProbe counts the files under a source tree whose base name
// matches any of the rule's match patterns and none of its exclude
// patterns. A missing or empty root is a legitimate zero, not a failure;
// only permission errors (and pattern syntax errors) fail the probe.
type FileCountProbe struct {
	rule config.SizeRule
}

// NewFileCountProbe creates a size probe for the given rule.
func NewFileCountProbe(rule config.SizeRule) *FileCountProbe {
	return &FileCountProbe{rule: rule}
}

func (p *FileCountProbe) Run(ctx context.Context) Result {
	start := time.Now()

	info, err := os.Stat(p.rule.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Kind: KindFileCount, Count: 0, CheckedAt: start}
		}
		return failed(KindFileCount, start, "stat "+p.rule.Root+": "+err.Error())
	}
	if !info.IsDir() {
		return failed(KindFileCount, start, p.rule.Root+" is not a directory")
	}

	count := 0
	walkErr := filepath.WalkDir(p.rule.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		match, err := matchesAny(p.rule.Match, d.Name())
		if err != nil {
			return err
		}
		if !match {
			return nil
		}
		excluded, err := matchesAny(p.rule.Exclude, d.Name())
		if err != nil {
			return err
		}
		if !excluded {
			count++
		}
		return nil
	})
	if walkErr != nil {
		return failed(KindFileCount, start, "walking "+p.rule.Root+": "+walkErr.Error())
	}

	return Result{Kind: KindFileCount, Count: count, CheckedAt: start}
}

func matchesAny(patterns []string, name string) (bool, error) {
	for _, pat := range patterns {
		ok, err := filepath.Match(pat, name)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
