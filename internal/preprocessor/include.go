package preprocessor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// resolve finds the file called name. Absolute names are used as they are,
// relative ones are looked up in the include directories, first hit wins.
// The result is a cleaned absolute path.
func (p *Preprocessor) resolve(name string, at int) (string, error) {
	var found string
	if filepath.IsAbs(name) {
		if fileExists(name) {
			found = name
		}
	} else {
		for _, dir := range p.cfg.IncludeDirs {
			cand := filepath.Join(dir, name)
			if fileExists(cand) {
				found = cand
				break
			}
		}
	}
	if found == "" {
		msg := fmt.Sprintf("file %s was not found", name)
		switch len(p.cfg.IncludeDirs) {
		case 0:
		case 1:
			msg += " in the include directory: " + p.cfg.IncludeDirs[0]
		default:
			msg += " in any of the include directories: " + strings.Join(p.cfg.IncludeDirs, ", ")
		}
		return "", &Error{Kind: ErrFileNotFound, At: at, Msg: msg + "."}
	}
	abs, err := filepath.Abs(found)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", found)
	}
	return filepath.Clean(abs), nil
}

// include preprocesses the file at path and returns the result.
func (p *Preprocessor) include(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return p.process(ctx, path, f)
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
