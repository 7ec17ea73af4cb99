// Package address converts mail addresses, domains and local parts into
// path segments that are safe to use as file and directory names in the
// policy store, and back again.
package address
