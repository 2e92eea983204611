package pack

import (
	"log/slog"

	"github.com/spf13/afero"
)

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	fsys       afero.Fs
	types      map[EntryType]struct{}
	lazy       bool
	classifier Classifier
	logger     *slog.Logger
	cacheSize  int
}

// WithFilesystem reads the container through fsys instead of the host
// filesystem.
func WithFilesystem(fsys afero.Fs) OpenOption {
	return func(c *openConfig) {
		c.fsys = fsys
	}
}

// WithTypes restricts the opened container to entries of the given
// types. Entries of other types are skipped entirely and do not survive
// a save. By default all entries load.
func WithTypes(types ...EntryType) OpenOption {
	return func(c *openConfig) {
		c.types = make(map[EntryType]struct{}, len(types))
		for _, t := range types {
			c.types[t] = struct{}{}
		}
	}
}

// WithPreload resolves every entry's data during Open instead of on
// first access. The backing file is released before Open returns.
func WithPreload(enabled bool) OpenOption {
	return func(c *openConfig) {
		c.lazy = !enabled
	}
}

// WithClassifier replaces the path classifier used to type entries.
func WithClassifier(cl Classifier) OpenOption {
	return func(c *openConfig) {
		c.classifier = cl
	}
}

// WithLogger sets the logger for open diagnostics and the returned
// container. By default logs are discarded.
func WithLogger(logger *slog.Logger) OpenOption {
	return func(c *openConfig) {
		c.logger = logger
	}
}

// WithDataCache keeps up to n resolved entry payloads in memory, evicting
// the least recently used. Zero disables caching, the default.
func WithDataCache(n int) OpenOption {
	return func(c *openConfig) {
		c.cacheSize = n
	}
}

// SaveOption configures Save and SaveAs.
type SaveOption func(*saveConfig)

type saveConfig struct {
	protected bool
	scheme    Scheme
	schemeSet bool
}

// WithProtectedEdits permits saving vendor-protected container types
// (boot, release, patch). By default those are refused.
func WithProtectedEdits(enabled bool) SaveOption {
	return func(c *saveConfig) {
		c.protected = enabled
	}
}

// WithCompression selects the stream format for entries marked
// compressed, overriding the revision default. The choice applies only
// to revisions that support compression.
func WithCompression(s Scheme) SaveOption {
	return func(c *saveConfig) {
		c.scheme = s
		c.schemeSet = true
	}
}
