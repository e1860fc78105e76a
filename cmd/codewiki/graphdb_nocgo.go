//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/codewiki/internal/graph"
)

func openGraphDB(string) (graph.Store, error) {
	return nil, errors.New("the Kuzu graph database requires a cgo build")
}
