package state

import "log"

// PeekAs returns the active value of key as a *T. It panics when the key is
// missing or holds another type, since both are wiring mistakes.
func PeekAs[T any](m *Manager, key string) *T {
	v, err := m.Peek(key)
	if err != nil {
		log.Panic(err)
	}

	t, ok := v.(*T)
	if !ok {
		log.Panicf("state: key %q holds %T, not %T", key, v, t)
	}

	return t
}

// StageAs returns the staged value of key as a *T. It panics when the key is
// missing or holds another type.
func StageAs[T any](m *Manager, key string) *T {
	v, err := m.Stage(key)
	if err != nil {
		log.Panic(err)
	}

	t, ok := v.(*T)
	if !ok {
		log.Panicf("state: key %q holds %T, not %T", key, v, t)
	}

	return t
}
