// Package vectorstore holds helpers shared by the vector store adapters.
//
// Adapters live in subpackages:
//
//   - memory: in-process store for tests and one-off sessions
//   - sqlite: embedded store on modernc.org/sqlite with exact search
//   - pgvector: PostgreSQL with the pgvector extension
//   - milvus: Milvus over the Go SDK (gRPC)
//
// Stores that search exactly (memory, sqlite) score with Score and order
// with Rank so their results match what an approximate index returns for
// the same metric.
package vectorstore
