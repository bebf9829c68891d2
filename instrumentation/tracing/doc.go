// Package tracing layers task tracing on top of the hooking primitives.
//
// Components announce the start, the steps, and the end of their tasks with
// StartTask, AddTaskStep, and EndTask. The calls turn into hooks on the
// component, and CollectTrace turns those hooks into calls on a Tracer.
package tracing
