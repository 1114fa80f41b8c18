package gallery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func designDoc(id, title string, status Status, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "prompt", Value: "a " + title},
		{Key: "tags", Value: bson.A{"bird"}},
		{Key: "image_uri", Value: "memory://designs/" + id},
		{Key: "author_id", Value: "u1"},
		{Key: "status", Value: string(status)},
		{Key: "created_at", Value: created},
		{Key: "updated_at", Value: created},
	}
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("get", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, designDoc("d1", "Owl", StatusApproved, created)))

		d, err := NewMongoStoreFromCollection(mt.Coll).Get(context.Background(), "d1")
		require.NoError(t, err)
		assert.Equal(t, "Owl", d.Title)
		assert.Equal(t, StatusApproved, d.Status)
		assert.Equal(t, []string{"bird"}, d.Tags)
		assert.True(t, created.Equal(d.CreatedAt))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewMongoStoreFromCollection(mt.Coll).Get(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			designDoc("d2", "Crow", StatusApproved, created.Add(time.Hour)),
			designDoc("d1", "Owl", StatusApproved, created),
		))

		ds, err := NewMongoStoreFromCollection(mt.Coll).List(context.Background(), Filter{Status: StatusApproved, Tag: "bird"})
		require.NoError(t, err)
		assert.Equal(t, []string{"d2", "d1"}, ids(ds))
	})

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := NewMongoStoreFromCollection(mt.Coll).Save(context.Background(), &Design{ID: "d1", Title: "Owl", Status: StatusPending})
		require.NoError(t, err)
	})

	mt.Run("update status", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: designDoc("d1", "Owl", StatusRejected, created)}))

		d, err := NewMongoStoreFromCollection(mt.Coll).UpdateStatus(context.Background(), "d1", StatusRejected, "offensive")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, d.Status)
	})
}
