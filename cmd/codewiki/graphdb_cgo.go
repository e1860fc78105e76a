//go:build cgo

package main

import "github.com/dusk-indust/codewiki/internal/graph"

func openGraphDB(path string) (graph.Store, error) {
	s, err := graph.NewKuzuFileStore(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
