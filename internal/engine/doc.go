// Package engine implements a small object-store engine on top of SQLite.
//
// The engine exposes the primitives of an index-capable key-value store and
// nothing more: named stores keyed by an auto-incrementing integer, JSON
// documents with the key inlined as "id", secondary indexes (single field,
// composite, unique) and transactions scoped to an explicit set of stores.
// There are no foreign keys and no joins; callers build those from Get, Put,
// Delete and index scans.
//
// # Stores and indexes
//
// Every store is a table (id INTEGER PRIMARY KEY AUTOINCREMENT, doc TEXT).
// Indexes are SQLite expression indexes over json_extract(doc, '$.field'),
// declared once through a Schema and created when Open upgrades the database.
//
// # Transactions
//
// Run opens one transaction scoped to the named stores and hands the
// operation a *Tx. The transaction commits when the operation returns nil
// and rolls back on error or panic. A *Tx must not be retained after Run
// returns. The underlying handle has a single connection, so transactions
// are serialised and a Run nested inside another Run is rejected.
//
// # Schema versioning
//
// Open compares the database's user_version with Schema.Version. When the
// database is older it creates the declared stores and indexes and calls
// Schema.Upgrade inside the same transaction before recording the version.
package engine
