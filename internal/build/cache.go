package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/qiniu/x/log"

	"github.com/goplus/hpkg/internal/build/lockedfile"
	"github.com/goplus/hpkg/internal/pkgid"
	"github.com/goplus/hpkg/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <escaped>/                      # recipe-level dir (cacheDir)
//	    .cache.json                   # identity cache: "version-identity" -> cacheEntry
//	    .lock                         # guards .cache.json
//	  <escaped>@<version>/<id>/       # one invocation, see internal/layout
//	    build/
//	    package/
const (
	cacheFile = ".cache.json"
	lockFile  = ".lock"
)

// cacheEntry records a package that was installed successfully.
type cacheEntry struct {
	Identity   pkgid.Identity `json:"identity"`
	PackageDir string         `json:"package_dir"`
	Platform   string         `json:"platform"`
	BuildTime  time.Time      `json:"build_time"`
}

// buildCache maps "version-identity" keys to their entries.
type buildCache struct {
	Cache map[string]*cacheEntry `json:"cache"`
}

// cacheKey uses the canonical version so "1.0.0" and "v1.0.0" share
// entries, as they share a layout namespace.
func cacheKey(version string, id pkgid.Identity) string {
	return module.CanonicalVersion(version) + "-" + id.String()
}

func (c *buildCache) get(version string, id pkgid.Identity) (*cacheEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, id)]
	return entry, ok
}

func (c *buildCache) set(version string, entry *cacheEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*cacheEntry)
	}
	c.Cache[cacheKey(version, entry.Identity)] = entry
}

// cacheDir returns the recipe-level directory for cache storage: workspaceDir/<escapedPath>.
func (b *Builder) cacheDir(modPath string) (string, error) {
	if modPath == "" {
		modPath = "_"
	}
	escaped, err := module.EscapePath(modPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, escaped), nil
}

// lockCache creates the recipe-level dir and locks its cache file.
func (b *Builder) lockCache(modPath string) (unlock func(), err error) {
	dir, err := b.cacheDir(modPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return lockedfile.MutexAt(filepath.Join(dir, lockFile)).Lock()
}

// loadCache reads the cache file of a recipe. A missing file yields an
// empty cache. The caller holds the cache lock.
func (b *Builder) loadCache(modPath string) (*buildCache, error) {
	dir, err := b.cacheDir(modPath)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, cacheFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		log.Warnf("ignoring corrupt cache %s: %v", path, err)
		return &buildCache{}, nil
	}
	return &cache, nil
}

// saveCache replaces the cache file of a recipe. The caller holds the
// cache lock.
func (b *Builder) saveCache(modPath string, cache *buildCache) error {
	dir, err := b.cacheDir(modPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, cacheFile+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, cacheFile)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// lookupCache returns the cached package dir of id, if it still exists.
func (b *Builder) lookupCache(mod module.Version, id pkgid.Identity) (string, bool, error) {
	unlock, err := b.lockCache(mod.Path)
	if err != nil {
		return "", false, err
	}
	defer unlock()

	cache, err := b.loadCache(mod.Path)
	if err != nil {
		return "", false, err
	}
	entry, ok := cache.get(mod.Version, id)
	if !ok {
		return "", false, nil
	}
	if _, err := os.Stat(entry.PackageDir); err != nil {
		return "", false, nil
	}
	return entry.PackageDir, true, nil
}

// recordCache adds entry to the cache of mod. The file is reloaded under
// the lock so entries written by concurrent builds are kept.
func (b *Builder) recordCache(mod module.Version, entry *cacheEntry) error {
	unlock, err := b.lockCache(mod.Path)
	if err != nil {
		return err
	}
	defer unlock()

	cache, err := b.loadCache(mod.Path)
	if err != nil {
		return err
	}
	cache.set(mod.Version, entry)
	return b.saveCache(mod.Path, cache)
}
