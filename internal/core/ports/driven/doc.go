// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Rasterizer: Converts a PDF into page images (pdftoppm)
//   - OCREngine: Recognises text on a page image (tesseract)
//   - EmbeddingService: Maps text to a fixed-dimension vector
//   - VectorStore: Stores vectors and answers nearest-neighbour queries
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Tokenizer: Token-accurate truncation. Without it, text is passed through untruncated.
//   - EmbeddingValidator: Connectivity checks when settings change.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
