// Package environment manages named variable sets and resolves
// {{variable}} placeholders in request and auth config values. The
// store reloads automatically when the environments file changes on
// disk.
package environment
