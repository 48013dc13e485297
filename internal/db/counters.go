package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// Sequence names for the counters collection. Each entity family draws its
// public 7-digit codes from its own sequence.
const (
	SeqUsers     = "users"
	SeqArticles  = "articles"
	SeqChats     = "chats"
	SeqMessages  = "messages"
	SeqComments  = "comments"
	SeqPurchases = "purchases"
	SeqRatings   = "ratings"
	SeqReports   = "reports"
)

const countersCollection = "counters"

// counterDoc is the stored shape of one sequence.
type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// NextCode atomically allocates the next 7-digit code from the named
// sequence. Sequences start at 1000000 so the first allocated code is
// 1000001. The allocation is a single FindOneAndUpdate with $inc and
// upsert, safe under concurrent callers.
func NextCode(ctx context.Context, database *mongo.Database, sequence string) (utils.Code, error) {
	if utils.NextCodeHook != nil {
		if code, override := utils.NextCodeHook(sequence); override {
			return code, nil
		}
	}

	filter := bson.M{"_id": sequence}
	update := bson.M{"$inc": bson.M{"value": 1}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := database.Collection(countersCollection).
		FindOneAndUpdate(ctx, filter, update, opts).
		Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate code from sequence %s: %w", sequence, err)
	}

	// A fresh sequence document starts its count at 1, offset into the
	// 7-digit space here rather than on insert.
	code := utils.Code(int64(utils.CodeMin) - 1 + doc.Value)
	if !code.Valid() {
		return 0, fmt.Errorf("sequence %s exhausted at %d", sequence, doc.Value)
	}
	return code, nil
}
