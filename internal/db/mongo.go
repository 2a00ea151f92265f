package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const mongoConnectTimeout = 10 * time.Second

// ConnectMongo connects to the deployment holding the GridFS image bucket.
// Image chunks are written with majority concern so a listing never points
// at a file a failover could drop.
func ConnectMongo(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetAppName("sopo").
		SetWriteConcern(writeconcern.Majority())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	fmt.Printf("Connected to MongoDB database %q.\n", dbName)
	return client, client.Database(dbName), nil
}

// OpenImageBucket opens the named GridFS bucket. Its collections are created
// on first upload.
func OpenImageBucket(mdb *mongo.Database, name string) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(mdb, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open GridFS bucket %s: %w", name, err)
	}
	return bucket, nil
}

func DisconnectMongo(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	fmt.Println("MongoDB connection closed.")
	return nil
}
