// Package catalog maintains the in-memory instrument catalog: option
// contracts for a whitelisted set of underlyings, loaded once from the
// catalog endpoint (or a persisted cache) and queried for search,
// option-chain lookups, and strikes around a spot price.
//
// Load is idempotent and never fails: any fetch or cache error degrades
// to an empty but ready catalog so dependent features keep working with
// no suggestions rather than blocking.
package catalog
