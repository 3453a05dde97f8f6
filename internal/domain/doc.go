// Package domain defines the core business types for the Customer Value
// Optimizer pipeline.
//
// Types in this package are pure value objects with no behavior beyond
// validation and derivation helpers. They are the shared language between
// the normalizer, the segmentation engine, the scorer, the ranker, and the
// reporting surface.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Pure derivation methods are allowed (LTV, priority lookup)
//   - Constants and enums belong here
package domain
