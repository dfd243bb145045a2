// Package watcher turns a directory into an ingestion inbox.
//
// Watcher reports files once they have been quiet for a debounce period,
// including files present when watching starts. Inbox feeds each settled
// JSON or YAML file to the ingestion facade and moves it to processed/ or
// failed/.
package watcher
