package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const idField = "_id"

// matches reports whether every top-level field of query equals the same
// field of doc. Values are compared by their JSON encoding so numbers read
// back from disk equal the ints they were written as.
func matches(doc, query Document) bool {
	for k, want := range query {
		got, ok := doc[k]
		if !ok || !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func hasOperators(update Document) bool {
	for k := range update {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// applyUpdate returns doc after update. Operator updates support $set and
// $unset; a plain document replaces every field except _id.
func applyUpdate(doc, update Document) (Document, error) {
	if !hasOperators(update) {
		out := Document{}
		for k, v := range update {
			out[k] = v
		}
		if id, ok := doc[idField]; ok {
			out[idField] = id
		}
		return out, nil
	}

	out := Document{}
	for k, v := range doc {
		out[k] = v
	}
	for op, arg := range update {
		fields, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("update operator %s needs a document, got %T", op, arg)
		}
		switch op {
		case "$set":
			for k, v := range fields {
				if k == idField {
					return nil, fmt.Errorf("cannot $set %s", idField)
				}
				out[k] = v
			}
		case "$unset":
			for k := range fields {
				delete(out, k)
			}
		default:
			return nil, fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return out, nil
}

// upsertBase seeds a new document from the equality fields of query.
func upsertBase(query Document) Document {
	doc := Document{}
	for k, v := range query {
		if !strings.HasPrefix(k, "$") {
			doc[k] = v
		}
	}
	return doc
}

// withID returns doc with an _id, generating one when missing.
func withID(doc Document) Document {
	if _, ok := doc[idField]; ok {
		return doc
	}
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[idField] = uuid.NewString()
	return out
}
