package repository

import (
	"collaboard/internal/model"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ArchiveRepo interface {
	Insert(ctx context.Context, archive *model.SessionArchive) error
	GetByAccessCode(ctx context.Context, accessCode string) (*model.SessionArchive, error)
	ListByMeeting(ctx context.Context, meetingID string) ([]*model.SessionArchive, error)
}

type archiveRepo struct {
	collection *mongo.Collection
}

func NewArchiveRepo(db *mongo.Database) ArchiveRepo {
	return &archiveRepo{
		collection: db.Collection("session_archives"),
	}
}

func (r *archiveRepo) Insert(ctx context.Context, archive *model.SessionArchive) error {
	_, err := r.collection.InsertOne(ctx, archive)
	return err
}

func (r *archiveRepo) GetByAccessCode(ctx context.Context, accessCode string) (*model.SessionArchive, error) {
	var archive model.SessionArchive
	err := r.collection.FindOne(ctx, bson.M{"accessCode": accessCode}).Decode(&archive)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &archive, nil
}

func (r *archiveRepo) ListByMeeting(ctx context.Context, meetingID string) ([]*model.SessionArchive, error) {
	opts := options.Find().SetSort(bson.M{"endedAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"meetingId": meetingID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	archives := make([]*model.SessionArchive, 0)
	if err := cursor.All(ctx, &archives); err != nil {
		return nil, err
	}
	return archives, nil
}
