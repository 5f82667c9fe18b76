// Package storage is the encrypted local replica of mesh-graph fragments.
//
// Two backends implement Adapter:
//   - sqlite: a SQLite file where every record is AES-256-GCM encrypted
//     under a key derived once from the configured root secret and salt
//   - memory: a mutex-guarded map used when no persistent store is
//     available
//
// Writes fully replace the record at a key. Reads return nil for absent
// keys. Hydrate releases the client's hydration barrier once the backend
// is usable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// String values are stored verbatim and tagged 'raw'; everything else is
// JSON-encoded and tagged 'json', so a string that happens to look like
// JSON reads back as the same string.
package storage
