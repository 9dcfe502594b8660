// Package fetch defines the abstract "fetch bytes by identifier" capability
// the streaming core consumes, plus a filesystem-backed implementation for
// scenes whose payloads sit next to the document on disk.
package fetch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
)

// Fetcher fetches binary payloads (buffers, images) by their relative
// identifier. Implementations may hit disk, a network, or an object store;
// the core only requires that a successful fetch returns the complete payload.
type Fetcher interface {
	// FetchBytes retrieves the payload for a URI.
	//
	// Parameters:
	//   - ctx: cancellation context for the fetch
	//   - uri: the relative payload identifier
	//
	// Returns:
	//   - []byte: the complete payload
	//   - error: error if the payload cannot be retrieved
	FetchBytes(ctx context.Context, uri string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

// FetchBytes calls the wrapped function.
func (f FetcherFunc) FetchBytes(ctx context.Context, uri string) ([]byte, error) {
	return f(ctx, uri)
}

// fsFetcher serves payloads from an fs.FS root.
type fsFetcher struct {
	root fs.FS
}

var _ Fetcher = &fsFetcher{}

// NewFSFetcher creates a Fetcher that resolves URIs inside an fs.FS.
//
// Parameters:
//   - root: the filesystem root for payload resolution
//
// Returns:
//   - Fetcher: the filesystem-backed fetcher
func NewFSFetcher(root fs.FS) Fetcher {
	return &fsFetcher{root: root}
}

// NewDirFetcher creates a Fetcher that resolves URIs relative to a directory,
// typically the directory containing the scene description file.
//
// Parameters:
//   - dir: the base directory for payload resolution
//
// Returns:
//   - Fetcher: the directory-backed fetcher
func NewDirFetcher(dir string) Fetcher {
	return &fsFetcher{root: os.DirFS(dir)}
}

func (f *fsFetcher) FetchBytes(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := path.Clean(uri)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid payload identifier %q", uri)
	}

	data, err := fs.ReadFile(f.root, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", uri, err)
	}
	return data, nil
}
