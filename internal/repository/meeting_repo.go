package repository

import (
	"collaboard/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MeetingRepo interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, id string) (*model.Meeting, error)
	ListByHost(ctx context.Context, hostID string) ([]*model.Meeting, error)
	Update(ctx context.Context, meeting *model.Meeting) error
	Delete(ctx context.Context, id string) error
}

type meetingRepo struct {
	collection *mongo.Collection
}

func NewMeetingRepo(db *mongo.Database) MeetingRepo {
	return &meetingRepo{
		collection: db.Collection("meetings"),
	}
}

func (r *meetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	now := time.Now()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, meeting)
	return err
}

func (r *meetingRepo) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&meeting)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepo) ListByHost(ctx context.Context, hostID string) ([]*model.Meeting, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"hostId": hostID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	meetings := make([]*model.Meeting, 0)
	if err := cursor.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (r *meetingRepo) Update(ctx context.Context, meeting *model.Meeting) error {
	meeting.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": meeting.ID}, meeting)
	return err
}

func (r *meetingRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
