// Package service implements business logic for the exambank application.
//
// ExamService sits between the HTTP handlers or CLI commands and the
// repository layer. It is the ingestion facade (analysis payload in, exam
// with tagged questions out), runs searches and exports their results
// through codec adapters, and exposes the catalog, statistics and
// consistency maintenance.
//
// # Event System
//
// Every successful mutation publishes an Event on the EventBus. The serve
// command forwards these events to connected clients via Server-Sent Events.
// Publishing never blocks: a subscriber whose channel is full misses the
// event.
package service
