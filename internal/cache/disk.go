package cache

import (
	"errors"
	"os"
	"path/filepath"
)

var errNotConfigured = errors.New("cache dir not configured")

// dirMode and fileMode are the permissions cache entries are created with.
func dirMode(strict bool) os.FileMode {
	if strict {
		return 0o700
	}
	return 0o755
}

func fileMode(strict bool) os.FileMode {
	if strict {
		return 0o600
	}
	return 0o644
}

// ensureDir creates dir and, under strict perms, tightens an existing one.
func ensureDir(dir string, strict bool) error {
	if dir == "" {
		return errNotConfigured
	}
	if err := os.MkdirAll(dir, dirMode(strict)); err != nil {
		return err
	}
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode().Perm() != 0o700 {
			_ = os.Chmod(dir, 0o700)
		}
	}
	return nil
}

// writeFileAtomic writes data next to path under a unique temporary name and
// renames it into place, so readers see either the old entry or the new one.
func writeFileAtomic(path string, data []byte, strict bool) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Chmod(fileMode(strict)); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
