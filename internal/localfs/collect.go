package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rescale/imghub/internal/pathutil"
	"github.com/rescale/imghub/internal/util/filter"
)

// CollectOptions controls how Collect expands directory arguments.
type CollectOptions struct {
	Recursive     bool
	IncludeHidden bool
	Filter        filter.Config
}

// Collect expands args into file paths. File arguments are returned
// unchanged, even when they do not match the filter. Directory arguments are
// replaced by the files they contain, sorted, with hidden entries and
// filtered-out names dropped. Arguments that cannot be stat'ed are passed
// through so the caller reports the error against the name the user typed.
func Collect(args []string, opts CollectOptions) ([]string, error) {
	var out []string
	for _, arg := range args {
		abs, err := pathutil.ResolveAbsolutePath(arg)
		if err != nil {
			out = append(out, arg)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			out = append(out, arg)
			continue
		}

		var found []string
		walkOpts := WalkOptions{IncludeHidden: opts.IncludeHidden, Recursive: opts.Recursive}
		err = WalkFiles(abs, walkOpts, func(e FileEntry) error {
			if !filter.Match(filepath.ToSlash(e.Rel), opts.Filter) {
				return nil
			}
			found = append(found, filepath.Join(arg, e.Rel))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
