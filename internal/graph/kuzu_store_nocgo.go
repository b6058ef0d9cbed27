//go:build !cgo

package graph

import "fmt"

// NewKuzuStore is unavailable without cgo.
func NewKuzuStore(path string) (Store, error) {
	return nil, fmt.Errorf("kuzu graph backend requires cgo (path %s)", path)
}
