package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func codeDoc(attempts int) bson.D {
	return bson.D{
		{Key: "_id", Value: verificationCodeID("asha@example.com", PurposeVerify)},
		{Key: "email", Value: "asha@example.com"},
		{Key: "purpose", Value: PurposeVerify},
		{Key: "code_hash", Value: "hash"},
		{Key: "attempts", Value: attempts},
		{Key: "expires_at", Value: time.Now().Add(OTPValidity)},
	}
}

func TestClaimVerificationCode(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("claims an attempt", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: codeDoc(2)}})
		repo := NewRepository(mt.Coll, mt.Coll)

		code, err := repo.ClaimVerificationCode(context.Background(), "Asha@Example.com", PurposeVerify)
		require.NoError(mt, err)
		assert.Equal(mt, 2, code.Attempts)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		var cmd struct {
			Query struct {
				ID       string `bson:"_id"`
				Attempts struct {
					LT int `bson:"$lt"`
				} `bson:"attempts"`
			} `bson:"query"`
			Update struct {
				Inc struct {
					Attempts int `bson:"attempts"`
				} `bson:"$inc"`
			} `bson:"update"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
		assert.Equal(mt, "verify:asha@example.com", cmd.Query.ID)
		assert.Equal(mt, MaxOTPAttempts, cmd.Query.Attempts.LT)
		assert.Equal(mt, 1, cmd.Update.Inc.Attempts)
	})

	mt.Run("exhausted code", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, codeDoc(MaxOTPAttempts)),
		)
		_, err := NewRepository(mt.Coll, mt.Coll).ClaimVerificationCode(context.Background(), "asha@example.com", PurposeVerify)
		assert.Equal(mt, ErrTooManyAttempts, err)
	})

	mt.Run("no code", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)
		_, err := NewRepository(mt.Coll, mt.Coll).ClaimVerificationCode(context.Background(), "asha@example.com", PurposeVerify)
		assert.Equal(mt, ErrCodeNotFound, err)
	})
}
