package pythgo

import (
	"sync"

	"pythgo/lib/event"
)

var (
	eventEmitter     *event.EventEmitter
	eventEmitterOnce sync.Once
)

// EventEmitter is the process wide emitter shared by the watcher and the CLI.
func EventEmitter() *event.EventEmitter {
	eventEmitterOnce.Do(func() {
		eventEmitter = event.CreateEventEmitter()
	})
	return eventEmitter
}
