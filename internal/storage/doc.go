// Package storage opens the directory tree that holds per-message policy
// files and builds safe store-relative names inside it.
package storage
