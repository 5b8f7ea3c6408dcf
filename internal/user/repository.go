package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user already exists")
	ErrCodeNotFound   = errors.New("verification code not found")
)

type Repository struct {
	users *mongo.Collection
	codes *mongo.Collection
}

func NewRepository(users, codes *mongo.Collection) *Repository {
	return &Repository{users: users, codes: codes}
}

// EnsureIndexes creates the unique email index and the TTL index that lets
// MongoDB drop expired verification codes on its own.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return errors.Wrap(err, "unable to create users email index")
	}
	_, err = r.codes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	})
	if err != nil {
		return errors.Wrap(err, "unable to create verification codes ttl index")
	}
	return nil
}

// CreateUser assigns an ID and timestamps to u and inserts it.
func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	id, err := ksuid.NewRandom()
	if err != nil {
		return errors.Wrap(err, "unable to generate user id")
	}
	now := time.Now().UTC()
	u.ID = id.String()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return errors.Wrap(err, "unable to insert user")
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (r *Repository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var u User
	err := r.users.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return u, ErrNotFound
	}
	if err != nil {
		return u, errors.Wrap(err, "unable to find user")
	}
	return u, nil
}

func (r *Repository) MarkVerified(ctx context.Context, email string) error {
	return r.update(ctx, email, bson.M{"is_verified": true})
}

func (r *Repository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return r.update(ctx, email, bson.M{"password": passwordHash})
}

func (r *Repository) UpdateName(ctx context.Context, email, name string) error {
	return r.update(ctx, email, bson.M{"name": name})
}

func (r *Repository) update(ctx context.Context, email string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := r.users.UpdateOne(ctx, bson.M{"email": NormalizeEmail(email)}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "unable to update user")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveVerificationCode replaces any live code for the same email and purpose.
func (r *Repository) SaveVerificationCode(ctx context.Context, code VerificationCode) error {
	_, err := r.codes.ReplaceOne(ctx, bson.M{"_id": code.ID}, code, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "unable to save verification code")
	}
	return nil
}

func (r *Repository) GetVerificationCode(ctx context.Context, email, purpose string) (VerificationCode, error) {
	var code VerificationCode
	err := r.codes.FindOne(ctx, bson.M{"_id": verificationCodeID(NormalizeEmail(email), purpose)}).Decode(&code)
	if err == mongo.ErrNoDocuments {
		return code, ErrCodeNotFound
	}
	if err != nil {
		return code, errors.Wrap(err, "unable to find verification code")
	}
	return code, nil
}

// ClaimVerificationCode counts one attempt against the live code and returns
// it as it was before the attempt. The filter on attempts makes the claim
// atomic, so concurrent guesses can never exceed MaxOTPAttempts.
func (r *Repository) ClaimVerificationCode(ctx context.Context, email, purpose string) (VerificationCode, error) {
	id := verificationCodeID(NormalizeEmail(email), purpose)
	var code VerificationCode
	err := r.codes.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "attempts": bson.M{"$lt": MaxOTPAttempts}},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&code)
	if err == mongo.ErrNoDocuments {
		if _, getErr := r.GetVerificationCode(ctx, email, purpose); getErr != nil {
			return code, getErr
		}
		return code, ErrTooManyAttempts
	}
	if err != nil {
		return code, errors.Wrap(err, "unable to claim verification code")
	}
	return code, nil
}

func (r *Repository) DeleteVerificationCode(ctx context.Context, email, purpose string) error {
	_, err := r.codes.DeleteOne(ctx, bson.M{"_id": verificationCodeID(NormalizeEmail(email), purpose)})
	return errors.Wrap(err, "unable to delete verification code")
}

// DeleteExpiredVerificationCodes removes codes past their expiry. The TTL
// index does the same lazily, this is for the cleanup command.
func (r *Repository) DeleteExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.codes.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, errors.Wrap(err, "unable to delete expired verification codes")
	}
	return res.DeletedCount, nil
}
