package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/disharmony/pkg/retrylimit"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoDatabase = "disharmony"

// mongoDriver backs mongodb:// and mongodb+srv:// connection strings.
type mongoDriver struct {
	uri    string
	dbName string
	client *mongo.Client
	db     *mongo.Database
}

func newMongoDriver(connectionString string) (driver, error) {
	_, rest, _ := strings.Cut(connectionString, "://")
	if rest == "" {
		return nil, errors.New("missing host")
	}

	dbName := defaultMongoDatabase
	if _, path, ok := strings.Cut(rest, "/"); ok {
		path, _, _ = strings.Cut(path, "?")
		if path != "" {
			dbName = path
		}
	}
	return &mongoDriver{uri: connectionString, dbName: dbName}, nil
}

func (d *mongoDriver) connect(ctx context.Context) error {
	if d.client == nil {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.uri))
		if err != nil {
			// a malformed URI will not get better by retrying
			return retrylimit.Fatal(fmt.Errorf("mongo connect: %w", err))
		}
		d.client = client
	}

	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	d.db = d.client.Database(d.dbName)
	return nil
}

func (d *mongoDriver) findOne(ctx context.Context, collection string, query Document) (Document, error) {
	var out bson.M
	err := d.db.Collection(collection).FindOne(ctx, bson.M(query)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return Document(out), nil
}

func (d *mongoDriver) insertOne(ctx context.Context, collection string, doc Document) error {
	_, err := d.db.Collection(collection).InsertOne(ctx, bson.M(doc))
	return err
}

func (d *mongoDriver) updateOne(ctx context.Context, collection string, query, update Document) error {
	coll := d.db.Collection(collection)
	if hasOperators(update) {
		_, err := coll.UpdateOne(ctx, bson.M(query), bson.M(update), options.Update().SetUpsert(true))
		return err
	}
	_, err := coll.ReplaceOne(ctx, bson.M(query), bson.M(update), options.Replace().SetUpsert(true))
	return err
}

func (d *mongoDriver) deleteOne(ctx context.Context, collection string, query Document) error {
	_, err := d.db.Collection(collection).DeleteOne(ctx, bson.M(query))
	return err
}

func (d *mongoDriver) close(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Disconnect(ctx)
}
