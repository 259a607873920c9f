package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ayush/exercise-tracker/internal/models"
)

type userDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Username string             `bson:"username"`
}

func (d userDoc) model() models.User {
	return models.User{ID: d.ID.Hex(), Username: d.Username}
}

type exerciseDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UID         string             `bson:"uid"`
	Username    string             `bson:"username"`
	Description string             `bson:"description"`
	Duration    int                `bson:"duration"`
	Date        string             `bson:"date"`
}

func (d exerciseDoc) model() models.Exercise {
	return models.Exercise{
		ID:          d.ID.Hex(),
		UID:         d.UID,
		Username:    d.Username,
		Description: d.Description,
		Duration:    d.Duration,
		Date:        d.Date,
	}
}

// MongoStore keeps users and exercises in two MongoDB collections.
type MongoStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	exercises *mongo.Collection
}

// ConnectMongo dials uri, pings the primary and returns a store bound to dbName.
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return NewMongoStore(client, client.Database(dbName)), nil
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:    client,
		users:     db.Collection("users"),
		exercises: db.Collection("exercises"),
	}
}

func (s *MongoStore) CreateUser(ctx context.Context, username string) (*models.User, error) {
	doc := userDoc{Username: username}
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("mongo insert user: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	u := doc.model()
	return &u, nil
}

// ListUsers returns every user decoded before an error, along with that error.
func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongo find users: %w", err)
	}
	defer cur.Close(ctx)

	var users []models.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return users, fmt.Errorf("mongo decode user: %w", err)
		}
		users = append(users, doc.model())
	}
	if err := cur.Err(); err != nil {
		return users, fmt.Errorf("mongo iterate users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	u := doc.model()
	return &u, nil
}

func (s *MongoStore) CreateExercise(ctx context.Context, ex *models.Exercise) (*models.Exercise, error) {
	doc := exerciseDoc{
		UID:         ex.UID,
		Username:    ex.Username,
		Description: ex.Description,
		Duration:    ex.Duration,
		Date:        ex.Date,
	}
	res, err := s.exercises.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("mongo insert exercise: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	out := doc.model()
	return &out, nil
}

func (s *MongoStore) ListExercises(ctx context.Context, f ExerciseFilter) ([]models.Exercise, error) {
	query := bson.M{
		"uid":  f.UID,
		"date": bson.M{"$gte": f.From, "$lte": f.To},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"description": 1, "duration": 1, "date": 1, "uid": 1, "username": 1})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.exercises.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find exercises: %w", err)
	}
	defer cur.Close(ctx)

	var docs []exerciseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode exercises: %w", err)
	}
	out := make([]models.Exercise, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// SyncIndexes ensures the (uid, date) index used by log queries exists.
func (s *MongoStore) SyncIndexes(ctx context.Context) error {
	_, err := s.exercises.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetName("uid_date"),
	})
	if err != nil {
		return fmt.Errorf("mongo create index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
