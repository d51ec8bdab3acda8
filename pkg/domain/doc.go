// Package domain contains the core domain types shared across the
// application: collection targets and scans, the per-source result envelopes
// produced by OSINT source adapters, and the entities, relationships and
// correlation reports derived from them. These types are intentionally free of
// infrastructure concerns so they can be shared across packages.
package domain
