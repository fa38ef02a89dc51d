package handlers

import (
	"time"

	"desktop-thumbnailer/internal/memory"
	"desktop-thumbnailer/internal/thumbnail"
)

// Handlers serves the thumbnail API for one factory.
type Handlers struct {
	factory   *thumbnail.Factory
	memory    *memory.Monitor
	startTime time.Time
}

// New creates handlers backed by factory. While monitor reports memory
// pressure only cached thumbnails are served; monitor may be nil.
func New(factory *thumbnail.Factory, monitor *memory.Monitor) *Handlers {
	return &Handlers{
		factory:   factory,
		memory:    monitor,
		startTime: time.Now(),
	}
}
