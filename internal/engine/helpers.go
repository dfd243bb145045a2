package engine

import (
	"encoding/json"
)

// Fetch reads the document under id as a T. It returns nil when absent.
func Fetch[T any](s *Store, id int64) (*T, error) {
	var v T
	ok, err := s.Get(id, &v)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// All decodes every document of the store in key order.
func All[T any](s *Store) ([]T, error) {
	var out []T
	err := s.Scan(collect(s.Name(), &out))
	return out, err
}

// AllByIndex decodes every document whose index key equals key.
func AllByIndex[T any](ix *Index, key ...any) ([]T, error) {
	var out []T
	err := ix.Scan(collect(ix.store.Name(), &out), key...)
	return out, err
}

// Lookup decodes the first document whose index key equals key. It returns
// nil when none matches.
func Lookup[T any](ix *Index, key ...any) (*T, error) {
	var v T
	ok, err := ix.Get(&v, key...)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// Join fetches the documents under ids in one batch, preserving the order
// of ids. Keys with no document are skipped.
func Join[T any](s *Store, ids []int64) ([]T, error) {
	docs, err := s.GetMany(ids)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, id := range ids {
		doc, ok := docs[id]
		if !ok {
			continue
		}
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, &Error{Op: "decode", Store: s.Name(), Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

func collect[T any](store string, out *[]T) func(json.RawMessage) error {
	return func(doc json.RawMessage) error {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return &Error{Op: "decode", Store: store, Err: err}
		}
		*out = append(*out, v)
		return nil
	}
}
