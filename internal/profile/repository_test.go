package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type savedUpdate struct {
	Update struct {
		Set struct {
			ProfileCompletion int     `bson:"profile_completion"`
			Resume            *Resume `bson:"resume"`
		} `bson:"$set"`
	} `bson:"update"`
}

func filledProfile() Profile {
	return Profile{
		Email:    "asha@example.com",
		Name:     "Asha",
		Headline: "Frontend developer",
		Location: "Pune",
		Bio:      "Builds things",
		Phone:    "+91 98765 43210",
		Skills:   []string{"React"},
	}
}

func TestSaveProfileCompletion(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stored resume counts", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		resume := bson.D{{Key: "key", Value: "resumes/asha/cv.pdf"}, {Key: "file_name", Value: "cv.pdf"}}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "asha@example.com"},
				{Key: "resume", Value: resume},
			}),
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: bson.D{
				{Key: "_id", Value: "asha@example.com"},
				{Key: "name", Value: "Asha"},
				{Key: "resume", Value: resume},
				{Key: "profile_completion", Value: 100},
			}}},
		)

		p := filledProfile()
		require.NoError(mt, NewRepository(mt.Coll).SaveProfile(context.Background(), &p))

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 2)
		assert.Equal(mt, "find", events[0].CommandName)
		assert.Equal(mt, "findAndModify", events[1].CommandName)
		var cmd savedUpdate
		require.NoError(mt, bson.Unmarshal(events[1].Command, &cmd))
		assert.Equal(mt, 100, cmd.Update.Set.ProfileCompletion)
		require.NotNil(mt, cmd.Update.Set.Resume)
		assert.Equal(mt, "resumes/asha/cv.pdf", cmd.Update.Set.Resume.Key)

		assert.Equal(mt, 100, p.ProfileCompletion)
		require.NotNil(mt, p.Resume)
		assert.Equal(mt, "cv.pdf", p.Resume.FileName)
	})

	mt.Run("new profile", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: bson.D{
				{Key: "_id", Value: "asha@example.com"},
				{Key: "profile_completion", Value: 85},
			}}},
		)

		p := filledProfile()
		require.NoError(mt, NewRepository(mt.Coll).SaveProfile(context.Background(), &p))

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 2)
		var cmd savedUpdate
		require.NoError(mt, bson.Unmarshal(events[1].Command, &cmd))
		assert.Equal(mt, 85, cmd.Update.Set.ProfileCompletion)
		assert.Nil(mt, cmd.Update.Set.Resume)
	})

	mt.Run("new resume skips the lookup", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: bson.D{
			{Key: "_id", Value: "asha@example.com"},
		}}})

		p := Profile{Email: "asha@example.com", Resume: &Resume{Key: "resumes/asha/cv.pdf"}}
		require.NoError(mt, NewRepository(mt.Coll).SaveProfile(context.Background(), &p))

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 1)
		var cmd savedUpdate
		require.NoError(mt, bson.Unmarshal(events[0].Command, &cmd))
		assert.Equal(mt, 14, cmd.Update.Set.ProfileCompletion)
	})
}

func TestGetProfileNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("missing", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err := NewRepository(mt.Coll).GetProfile(context.Background(), "nobody@example.com")
		assert.Equal(mt, ErrNotFound, err)
	})
}
