package profile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("profile not found")

type Repository struct {
	profiles *mongo.Collection
}

func NewRepository(profiles *mongo.Collection) *Repository {
	return &Repository{profiles: profiles}
}

func (r *Repository) GetProfile(ctx context.Context, email string) (Profile, error) {
	var p Profile
	err := r.profiles.FindOne(ctx, bson.M{"_id": email}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return p, ErrNotFound
	}
	if err != nil {
		return p, errors.Wrap(err, "unable to find profile")
	}
	return p, nil
}

// SaveProfile upserts p, recomputing its completion percentage. A nil resume
// keeps the stored one, which still counts towards completion.
func (r *Repository) SaveProfile(ctx context.Context, p *Profile) error {
	if p.Resume == nil {
		existing, err := r.GetProfile(ctx, p.Email)
		switch {
		case err == nil:
			p.Resume = existing.Resume
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	now := time.Now().UTC()
	p.UpdatedAt = now
	p.ProfileCompletion = Completion(*p)
	if p.Skills == nil {
		p.Skills = []string{}
	}
	set := bson.M{
		"name":               p.Name,
		"headline":           p.Headline,
		"location":           p.Location,
		"bio":                p.Bio,
		"phone":              p.Phone,
		"skills":             p.Skills,
		"profile_completion": p.ProfileCompletion,
		"updated_at":         p.UpdatedAt,
	}
	if p.Resume != nil {
		set["resume"] = p.Resume
	}
	res := r.profiles.FindOneAndUpdate(ctx,
		bson.M{"_id": p.Email},
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var saved Profile
	if err := res.Decode(&saved); err != nil {
		return errors.Wrap(err, "unable to save profile")
	}
	*p = saved
	return nil
}
