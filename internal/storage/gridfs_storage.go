package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// gridFSStorage implements IImageStorage on a MongoDB GridFS bucket. The
// object key is the GridFS filename; a unique index on filename keeps keys
// non-overwritable.
type gridFSStorage struct {
	bucket  *gridfs.Bucket
	baseURL string
}

type gridFSFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Filename string             `bson:"filename"`
}

// NewGridFSStorage wraps bucket. Images are served by the API under baseURL/v1/images/.
func NewGridFSStorage(ctx context.Context, mdb *mongo.Database, bucket *gridfs.Bucket, bucketName, baseURL string) (IImageStorage, error) {
	_, err := mdb.Collection(bucketName+".files").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "filename", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("filename_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure unique filename index on %s: %w", bucketName, err)
	}
	return &gridFSStorage{
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/v1/images",
	}, nil
}

func (s *gridFSStorage) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	existing, err := s.find(ctx, bson.M{"filename": key})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrObjectExists, key)
	}

	fileID := primitive.NewObjectID()
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType, "size": size})
	if err := s.bucket.UploadFromStreamWithID(fileID, key, body, opts); err != nil {
		// the chunks of a rejected upload are already written
		_ = s.bucket.DeleteContext(ctx, fileID)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrObjectExists, key)
		}
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *gridFSStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to open %s: %w", key, err)
	}

	contentType := "application/octet-stream"
	if meta := stream.GetFile().Metadata; meta != nil {
		if v, err := meta.LookupErr("contentType"); err == nil {
			if ct, ok := v.StringValueOK(); ok && ct != "" {
				contentType = ct
			}
		}
	}
	return stream, contentType, nil
}

func (s *gridFSStorage) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *gridFSStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	files, err := s.find(ctx, bson.M{"filename": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}})
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = f.Filename
	}
	return keys, nil
}

func (s *gridFSStorage) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	files, err := s.find(ctx, bson.M{"filename": bson.M{"$in": keys}})
	if err != nil {
		return err
	}
	var failed []string
	for _, f := range files {
		if err := s.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			failed = append(failed, f.Filename)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d of %d objects: %s", len(failed), len(keys), strings.Join(failed, ", "))
	}
	return nil
}

func (s *gridFSStorage) find(ctx context.Context, filter bson.M) ([]gridFSFile, error) {
	cursor, err := s.bucket.FindContext(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query GridFS files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []gridFSFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode GridFS files: %w", err)
	}
	return files, nil
}
