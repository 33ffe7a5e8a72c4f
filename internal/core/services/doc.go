// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline is a strict sequence of three stages:
//
//	TextExtractor -> Vectorizer -> IndexWriter
//
// and the query path runs QueryEngine, which reuses the Vectorizer.
// Only IndexWriter mutates the store, so a failure in any earlier
// stage leaves the store untouched.
//
// Services are pure Go with no CGO or external tools.
package services
