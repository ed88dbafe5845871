// Package resolve turns free-form search queries into instrument
// suggestions. A query naming a recognized underlying plus a strike
// resolves to exact-strike contracts; a bare underlying prefix resolves
// to an at-the-money expansion around a reference price; anything else
// falls back to substring search over the catalog.
package resolve
