package domain

// DirectoryListing is the bounded view of the working directory shown to the router.
type DirectoryListing struct {
	WorkingDir string
	Files      []FileInfo
	// Summary replaces Files when the directory is too large to list.
	Summary string
}

// FileInfo is a minimal representation of discovered files.
type FileInfo struct {
	Path string
	Size int64
	Type FileType
}

// FileType describes the type of file entry.
type FileType string

const (
	FileTypeUnknown FileType = "unknown"
	FileTypeFile    FileType = "file"
	FileTypeDir     FileType = "dir"
	FileTypeSymlink FileType = "symlink"
)

// RoutingContext is built once per request and never mutated afterwards.
type RoutingContext struct {
	utterance string
	listing   DirectoryListing
	plugins   []PluginCapability
}

// NewRoutingContext copies its inputs so later changes by the caller are not observed.
func NewRoutingContext(utterance string, listing DirectoryListing, plugins []PluginCapability) RoutingContext {
	listing.Files = append([]FileInfo(nil), listing.Files...)
	caps := make([]PluginCapability, len(plugins))
	for i, p := range plugins {
		caps[i] = p.clone()
	}
	return RoutingContext{utterance: utterance, listing: listing, plugins: caps}
}

// Utterance is the user's request text.
func (c RoutingContext) Utterance() string { return c.utterance }

// WorkingDir is the directory commands will run in.
func (c RoutingContext) WorkingDir() string { return c.listing.WorkingDir }

// Listing returns a copy of the directory listing.
func (c RoutingContext) Listing() DirectoryListing {
	out := c.listing
	out.Files = append([]FileInfo(nil), c.listing.Files...)
	return out
}

// Plugins returns copies of the registered capability summaries.
func (c RoutingContext) Plugins() []PluginCapability {
	out := make([]PluginCapability, len(c.plugins))
	for i, p := range c.plugins {
		out[i] = p.clone()
	}
	return out
}

// HasPlugin reports whether id was registered when the context was built.
func (c RoutingContext) HasPlugin(id string) bool {
	for _, p := range c.plugins {
		if p.ID == id {
			return true
		}
	}
	return false
}

// WithClarification derives a new context whose utterance carries the user's answer.
func (c RoutingContext) WithClarification(question, answer string) RoutingContext {
	next := NewRoutingContext(c.utterance, c.listing, c.plugins)
	next.utterance = c.utterance + "\nClarification asked: " + question + "\nUser answered: " + answer
	return next
}
