package event

import (
	"slices"
	"sync"

	"pythgo/utils"
)

type CallbackItem struct {
	Id        string
	Priority  int
	IsOnetime bool
	Callback  Callback
}
type Callback func(object ...interface{})

type EventEmitter struct {
	callbacks map[string][]CallbackItem
	mxState   *sync.RWMutex
}

func CreateEventEmitter() *EventEmitter {
	return &EventEmitter{
		callbacks: make(map[string][]CallbackItem),
		mxState:   new(sync.RWMutex),
	}
}

func (s *EventEmitter) addHandler(event string, callbackItem CallbackItem) {
	defer s.mxState.Unlock()
	s.mxState.Lock()
	callbacks := s.callbacks[event]
	idx := slices.IndexFunc(callbacks, func(item CallbackItem) bool {
		return item.Priority > callbackItem.Priority
	})
	if idx < 0 {
		s.callbacks[event] = append(callbacks, callbackItem)
	} else {
		s.callbacks[event] = slices.Insert(callbacks, idx, callbackItem)
	}
}

func (s *EventEmitter) On(event string, callback Callback, priorityArr ...int) string {
	priority := 100
	if len(priorityArr) > 0 {
		priority = priorityArr[0]
	}
	id := utils.GenerateIdentity()
	s.addHandler(event, CallbackItem{Callback: callback, Priority: priority, Id: id})
	return id
}

func (s *EventEmitter) Once(event string, callback Callback, priorityArr ...int) string {
	priority := 100
	if len(priorityArr) > 0 {
		priority = priorityArr[0]
	}
	id := utils.GenerateIdentity()
	s.addHandler(event, CallbackItem{Callback: callback, Priority: priority, Id: id, IsOnetime: true})
	return id
}

func (s *EventEmitter) Off(event string, callbackIds ...string) {
	defer s.mxState.Unlock()
	s.mxState.Lock()
	if len(callbackIds) == 0 {
		delete(s.callbacks, event)
	} else {
		callbacks, exists := s.callbacks[event]
		if exists {
			var newCallbacks []CallbackItem
			for _, cb := range callbacks {
				if !slices.Contains(callbackIds, cb.Id) {
					newCallbacks = append(newCallbacks, cb)
				}
			}
			s.callbacks[event] = newCallbacks
		}
	}

}

// Emit runs every handler of event in its own goroutine.
func (s *EventEmitter) Emit(event string, object ...interface{}) {
	for _, callback := range s.take(event) {
		go (callback.Callback)(object...)
	}
}

// EmitSync runs the handlers in priority order before returning.
func (s *EventEmitter) EmitSync(event string, object ...interface{}) {
	for _, callback := range s.take(event) {
		callback.Callback(object...)
	}
}

// take returns the handlers of event and drops the one-time ones under the
// same lock, so each one-time handler is handed out once.
func (s *EventEmitter) take(event string) []CallbackItem {
	defer s.mxState.Unlock()
	s.mxState.Lock()
	callbacks := s.callbacks[event]
	if !slices.ContainsFunc(callbacks, func(item CallbackItem) bool { return item.IsOnetime }) {
		return slices.Clone(callbacks)
	}
	taken := slices.Clone(callbacks)
	s.callbacks[event] = slices.DeleteFunc(callbacks, func(item CallbackItem) bool { return item.IsOnetime })
	return taken
}

func (s *EventEmitter) ListenerCount(event string) int {
	defer s.mxState.RUnlock()
	s.mxState.RLock()
	return len(s.callbacks[event])
}
