package repository

import (
	"collaboard/internal/model"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AnswerRepo interface {
	Insert(ctx context.Context, answer *model.Answer) error
	ListByAccessCode(ctx context.Context, accessCode string) ([]*model.Answer, error)
	ListByQuestion(ctx context.Context, accessCode string, questionIndex int) ([]*model.Answer, error)
}

type answerRepo struct {
	collection *mongo.Collection
}

func NewAnswerRepo(db *mongo.Database) AnswerRepo {
	return &answerRepo{
		collection: db.Collection("answers"),
	}
}

func (r *answerRepo) Insert(ctx context.Context, answer *model.Answer) error {
	_, err := r.collection.InsertOne(ctx, answer)
	return err
}

func (r *answerRepo) ListByAccessCode(ctx context.Context, accessCode string) ([]*model.Answer, error) {
	opts := options.Find().SetSort(bson.M{"submittedAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"accessCode": accessCode}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	answers := make([]*model.Answer, 0)
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepo) ListByQuestion(ctx context.Context, accessCode string, questionIndex int) ([]*model.Answer, error) {
	filter := bson.M{"accessCode": accessCode, "questionIndex": questionIndex}
	opts := options.Find().SetSort(bson.M{"submittedAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	answers := make([]*model.Answer, 0)
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}
