// Package transport executes decorated requests over HTTP and buffers
// responses for display.
package transport
