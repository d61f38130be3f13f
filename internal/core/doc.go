// Package core converts supplier product feeds into canonical products.
//
// The package has no HTTP, file-format or storage dependencies. Those are
// injected through the small interfaces in service.go.
//
// # Pipeline
//
//  1. A [FeedDecoder] turns the uploaded file into [RawFeedData].
//  2. [DetectStrategy] picks the parsing [Strategy] from the headers: saved
//     mapping groups first (first full match wins), then the built-in
//     Contakt and Interlink signatures.
//  3. The [Extractor] parses every row through the strategy, stamps owner
//     and id, and collects rows that failed conversion.
//  4. Optionally a [Normalizer] aligns attributes with the marketplace
//     catalog, asking an [Oracle] when there is no exact match.
//  5. The products are stored by a [ProductStore].
//
// # Error Handling
//
// Detection failure and oracle "UNKNOWN" answers are ordinary outcomes.
// An empty feed, an invalid mapped id (under [AbortBatch]) and an unknown
// supplier for attribute parsing are errors. [MapError] turns any error into
// a coded [UserMessage] for display:
//
//   - FEED001-FEED004: feed content
//   - FILE001-FILE007: file decoding
//   - UPL001-UPL004: upload limits and cancellation
//   - DB001-DB004: database errors
package core
