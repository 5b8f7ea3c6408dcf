package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collections
//
// users              one document per account, unique index on email
// profiles           one document per account, keyed by email
// verification_codes one live code per (email, purpose), TTL on expires_at
// resumes.files      GridFS bucket used when no S3 bucket is configured
// resumes.chunks
const (
	UsersCollection             = "users"
	ProfilesCollection          = "profiles"
	VerificationCodesCollection = "verification_codes"
	ResumesBucket               = "resumes"
)

const connectTimeout = 10 * time.Second

// GetDbConn opens a MongoDB client and verifies it with a ping
func GetDbConn(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(5 * time.Minute).
		SetServerSelectionTimeout(connectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "unable to ping mongodb")
	}
	return client, nil
}

// CloseDbConn closes db conn
func CloseDbConn(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

func ResumeBucket(db *mongo.Database) (*gridfs.Bucket, error) {
	return gridfs.NewBucket(db, options.GridFSBucket().SetName(ResumesBucket))
}
