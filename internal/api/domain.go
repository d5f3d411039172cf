package api

import (
	"github.com/BerndBr/taskana/internal/accessitems"
	"github.com/BerndBr/taskana/internal/classifications"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Classifications classifications.System
	AccessItems     accessitems.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	return &Domain{
		Classifications: classifications.New(
			runtime.Database.Connection(),
			runtime.Engine,
			runtime.Imports,
			runtime.Cache,
			runtime.Events,
			runtime.Storage,
			runtime.Metrics,
			runtime.Logger,
			runtime.Pagination,
		),
		AccessItems: accessitems.New(
			runtime.Database.Connection(),
			runtime.Logger,
			runtime.Pagination,
		),
	}
}
