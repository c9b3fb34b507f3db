//go:build !unix

package memprovider

import "fmt"

// mmapProvider is unavailable on non-unix build targets; Mmap() still
// returns a Provider so callers can select it from Config without a build
// tag of their own, but every operation fails clearly rather than
// silently falling back to the heap.
type mmapProvider struct{}

// Mmap returns a Provider that reports an error on first use; this build
// target has no golang.org/x/sys/unix mmap support. Use Heap instead.
func Mmap() Provider {
	return mmapProvider{}
}

var errUnsupported = fmt.Errorf("memprovider: mmap-backed regions are not supported on this build target")

func (mmapProvider) Obtain(int) ([]byte, error)             { return nil, errUnsupported }
func (mmapProvider) Grow([]byte, int) ([]byte, bool, error) { return nil, false, errUnsupported }
func (mmapProvider) Release([]byte) error                   { return errUnsupported }
func (mmapProvider) Pinnable() bool                         { return false }
