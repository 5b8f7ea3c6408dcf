package resume

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps resumes inside MongoDB. The key is the GridFS filename,
// each Put adds a revision and the newest one is served.
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(bucket *gridfs.Bucket) *GridFSStore {
	return &GridFSStore{bucket: bucket}
}

// Put uploads a new revision of key. Older revisions are removed only after
// the upload completed, so a failed upload leaves the stored file intact.
func (s *GridFSStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "contentType", Value: contentType},
		{Key: "size", Value: size},
	})
	id := primitive.NewObjectID()
	us, err := s.bucket.OpenUploadStreamWithID(id, key, opts)
	if err != nil {
		return errors.Wrapf(err, "unable to open upload for %s", key)
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := us.SetWriteDeadline(dl); err != nil {
			_ = us.Abort()
			return errors.Wrap(err, "unable to set upload deadline")
		}
	}
	if _, err := io.Copy(us, r); err != nil {
		_ = us.Abort()
		return errors.Wrapf(err, "unable to upload %s", key)
	}
	if err := us.Close(); err != nil {
		return errors.Wrapf(err, "unable to upload %s", key)
	}
	return s.deleteRevisions(ctx, bson.M{"filename": key, "_id": bson.M{"$ne": id}})
}

func (s *GridFSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(key)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", key)
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := stream.SetReadDeadline(dl); err != nil {
			_ = stream.Close()
			return nil, errors.Wrap(err, "unable to set download deadline")
		}
	}
	return stream, nil
}

// Delete removes every revision of key. A missing key is not an error.
func (s *GridFSStore) Delete(ctx context.Context, key string) error {
	return s.deleteRevisions(ctx, bson.M{"filename": key})
}

func (s *GridFSStore) deleteRevisions(ctx context.Context, filter bson.M) error {
	cur, err := s.bucket.FindContext(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "unable to list resume revisions")
	}
	var files []struct {
		ID interface{} `bson:"_id"`
	}
	if err := cur.All(ctx, &files); err != nil {
		return errors.Wrap(err, "unable to list resume revisions")
	}
	for _, f := range files {
		err := s.bucket.DeleteContext(ctx, f.ID)
		if err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return errors.Wrapf(err, "unable to delete resume revision %v", f.ID)
		}
	}
	return nil
}
