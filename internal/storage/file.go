package storage

import (
	"context"
	"strings"

	"github.com/keshon/disharmony/internal/storage/filestore"
)

// fileDriver backs file://<path> with the embedded JSON document engine.
type fileDriver struct {
	path  string
	store *filestore.Store
}

func newFileDriver(connectionString string) (driver, error) {
	path := strings.TrimPrefix(connectionString, "file://")
	if path == "" {
		return nil, errEmptyPath
	}
	return &fileDriver{path: path}, nil
}

func (d *fileDriver) connect(context.Context) error {
	store, err := filestore.Open(d.path)
	if err != nil {
		return err
	}
	d.store = store
	return nil
}

func (d *fileDriver) findOne(_ context.Context, collection string, query Document) (Document, error) {
	doc, ok, err := d.store.Find(collection, func(doc filestore.Document) bool { return matches(doc, query) })
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (d *fileDriver) insertOne(_ context.Context, collection string, doc Document) error {
	return d.store.Insert(collection, withID(doc))
}

func (d *fileDriver) updateOne(_ context.Context, collection string, query, update Document) error {
	match := func(doc filestore.Document) bool { return matches(doc, query) }
	found, err := d.store.Update(collection, match, func(doc filestore.Document) (filestore.Document, error) {
		return applyUpdate(doc, update)
	})
	if err != nil || found {
		return err
	}

	doc, err := applyUpdate(upsertBase(query), update)
	if err != nil {
		return err
	}
	return d.store.Insert(collection, withID(doc))
}

func (d *fileDriver) deleteOne(_ context.Context, collection string, query Document) error {
	_, err := d.store.Delete(collection, func(doc filestore.Document) bool { return matches(doc, query) })
	return err
}

func (d *fileDriver) close(context.Context) error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
