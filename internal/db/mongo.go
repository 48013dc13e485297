package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		// Disconnect if ping fails
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(dbName)
	log.Println("Successfully connected to MongoDB")

	return client, database, nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	log.Println("MongoDB connection closed")
	return nil
}

// EnsureIndexes creates the unique indexes the domain invariants rely on.
// Chat uniqueness per (article, buyer) and the single-active-rating rule
// are enforced here rather than by application-level checks alone.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "login", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"articles": {
			{Keys: bson.D{{Key: "owner_code", Value: 1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "category", Value: 1}}},
		},
		"chats": {
			{Keys: bson.D{{Key: "article_code", Value: 1}, {Key: "buyer_code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "seller_code", Value: 1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "chat_code", Value: 1}, {Key: "sent_at", Value: 1}}},
		},
		"comments": {
			{Keys: bson.D{{Key: "receiver_code", Value: 1}}},
			{Keys: bson.D{{Key: "article_code", Value: 1}}},
		},
		"purchases": {
			{Keys: bson.D{{Key: "buyer_code", Value: 1}}},
			{Keys: bson.D{{Key: "seller_code", Value: 1}}},
			{
				Keys: bson.D{{Key: "article_code", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(
					bson.M{"state": bson.M{"$in": []string{"pending", "confirmed", "completed"}}},
				),
			},
		},
		"ratings": {
			{
				Keys: bson.D{{Key: "rater_code", Value: 1}, {Key: "ratee_code", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(
					bson.M{"active": true},
				),
			},
		},
		"reports": {
			{Keys: bson.D{{Key: "reporter_code", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", coll, err)
		}
	}
	return nil
}
