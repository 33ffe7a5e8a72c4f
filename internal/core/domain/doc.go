// Package domain defines the core business entities for dquery.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A PDF handed to the ingestion pipeline
//   - PageImage: One rasterised page, owned by the text extractor during OCR
//   - ExtractedText: Page-ordered OCR output
//   - Vector: A fixed-dimension embedding
//   - Hit / QueryResult: Ranked nearest-neighbour matches
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
