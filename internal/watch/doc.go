// Package watch maintains the watch list: symbols subscribed on the
// live feed with their most recent traded prices. The watch list is the
// first tier of reference-price resolution.
package watch
