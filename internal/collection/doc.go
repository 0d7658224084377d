// Package collection stores saved requests and folders and resolves
// which auth config applies to a request through the folder
// inheritance chain.
package collection
