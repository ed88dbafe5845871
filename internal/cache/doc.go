// Package cache provides catalog.Cache implementations: a Redis-backed
// cache for shared deployments and a local file cache for single-node
// setups and development.
package cache
