// Package repository defines the data access interfaces for exambank.
//
// This package provides the repository abstraction layer for persisting
// and retrieving question bank entities. The implementation is in the
// docstore subpackage.
//
// # Repository Interface
//
// Repository groups one repository per entity (types, tags, exams,
// questions), the RelationManager for the question-tag join store, and the
// cross-entity operations: search with enrichment, ingestion of analysed
// exams, catalog and statistics views, and consistency check/repair.
//
// # Docstore Implementation
//
// The docstore implementation runs on the engine package, an object store
// with secondary indexes but no foreign keys or joins. It handles:
//
// - Content uniqueness through index lookups before every write
// - Composite uniqueness of question-tag pairs
// - Cascading deletes, each in a single transaction
// - Two-phase joins for enrichment (index scan, then batch fetch)
// - Seeding of the type and tag catalog on first open
//
// # Testing
//
// The docstore repository is tested with in-memory databases.
package repository
