package tui

import "maps"

// State tracks collected values and pending errors keyed by message key.
type State struct {
	values map[string]any
	errors map[string][]string
}

// NewState seeds the state with prefilled values and errors.
func NewState(prefill map[string]any, errs map[string][]string) *State {
	s := &State{
		values: maps.Clone(prefill),
		errors: make(map[string][]string, len(errs)),
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	for key, messages := range errs {
		s.errors[key] = append([]string(nil), messages...)
	}
	return s
}

// Values returns the current value map (mutable).
func (s *State) Values() map[string]any {
	return s.values
}

// Set records the answer for key and clears its pending errors.
func (s *State) Set(key string, value any) {
	s.values[key] = value
	delete(s.errors, key)
}

// TakeErrors returns and clears the pending errors of key.
func (s *State) TakeErrors(key string) []string {
	messages := s.errors[key]
	delete(s.errors, key)
	return messages
}
