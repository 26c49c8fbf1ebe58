package store

import (
	"context"
	"time"

	"github.com/conduit-lang/boardstore/internal/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig holds connection settings for MongoDialer
type MongoConfig struct {
	URI string
	// Prefix is prepended to every logical database name
	Prefix  string
	Timeout time.Duration
}

// MongoDialer returns a Dialer opening one client per call
func MongoDialer(cfg MongoConfig) Dialer {
	return func(ctx context.Context, name string) (Conn, error) {
		opts := options.Client().ApplyURI(cfg.URI)
		if cfg.Timeout > 0 {
			opts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
		}

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, errs.IO(errs.CodeConnectFailed, err, "connect %s", name)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, errs.IO(errs.CodeConnectFailed, err, "ping %s", name)
		}
		return &mongoConn{client: client, db: client.Database(cfg.Prefix + name)}, nil
	}
}

type mongoConn struct {
	client *mongo.Client
	db     *mongo.Database
}

func (c *mongoConn) Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, error) {
	fo := options.Find()
	if len(opts.Sort) > 0 {
		fo.SetSort(opts.Sort)
	}
	if len(opts.Projection) > 0 {
		fo.SetProjection(opts.Projection)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}

	cur, err := c.db.Collection(collection).Find(ctx, filter, fo)
	if err != nil {
		return nil, errs.IO(errs.CodeFindFailed, err, "find in %s", collection)
	}
	out := []bson.M{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.IO(errs.CodeFindFailed, err, "read cursor of %s", collection)
	}
	return out, nil
}

func (c *mongoConn) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	n, err := c.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, errs.IO(errs.CodeCountFailed, err, "count in %s", collection)
	}
	return n, nil
}

func (c *mongoConn) Insert(ctx context.Context, collection string, docs []bson.M) ([]interface{}, error) {
	if len(docs) == 0 {
		return []interface{}{}, nil
	}
	batch := make([]interface{}, len(docs))
	for i, d := range docs {
		batch[i] = d
	}
	res, err := c.db.Collection(collection).InsertMany(ctx, batch)
	if err != nil {
		return nil, errs.IO(errs.CodeAddFailed, err, "insert into %s", collection)
	}
	return res.InsertedIDs, nil
}

func (c *mongoConn) Update(ctx context.Context, collection string, filter, set bson.M) (int64, error) {
	res, err := c.db.Collection(collection).UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, errs.IO(errs.CodeUpdateFailed, err, "update in %s", collection)
	}
	return res.MatchedCount, nil
}

func (c *mongoConn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
