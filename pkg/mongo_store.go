package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const sessionsCollection = "sessions"

// recordProjection leaves out the breakdown payload, which only GetBreakdown needs.
var recordProjection = bson.D{{Key: "timeline", Value: 0}, {Key: "metrics", Value: 0}}

// MongoSessionStore reads session documents from the "sessions" collection.
type MongoSessionStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type sessionDocument struct {
	MentorID    string        `bson:"mentorId"`
	SessionID   string        `bson:"sessionId"`
	VideoURL    string        `bson:"videoUrl"`
	SessionName string        `bson:"sessionName"`
	Duration    bson.RawValue `bson:"duration"`
	CreatedAt   bson.RawValue `bson:"created_at"`
}

// NewMongoSessionStore connects to MongoDB and verifies the connection.
func NewMongoSessionStore(ctx context.Context, uri, dbName string) (*MongoSessionStore, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongodb uri required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoSessionStore{
		client:     client,
		collection: client.Database(dbName).Collection(sessionsCollection),
	}, nil
}

func (s *MongoSessionStore) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *MongoSessionStore) GetSession(ctx context.Context, mentorID, sessionID string) (SessionRecord, error) {
	start := time.Now()
	rec, err := s.getSession(ctx, mentorID, sessionID)
	observeStoreRequest("mongo", "get_session", err, time.Since(start))
	return rec, err
}

func (s *MongoSessionStore) getSession(ctx context.Context, mentorID, sessionID string) (SessionRecord, error) {
	filter := bson.D{{Key: "mentorId", Value: mentorID}, {Key: "sessionId", Value: sessionID}}

	var doc sessionDocument
	err := s.collection.FindOne(ctx, filter, options.FindOne().SetProjection(recordProjection)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return SessionRecord{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("find session %s: %w", sessionID, err)
	}
	return doc.record(), nil
}

func (s *MongoSessionStore) GetBreakdown(ctx context.Context, mentorID, sessionID string) (SessionBreakdown, error) {
	start := time.Now()
	out, err := s.getBreakdown(ctx, mentorID, sessionID)
	observeStoreRequest("mongo", "get_breakdown", err, time.Since(start))
	return out, err
}

func (s *MongoSessionStore) getBreakdown(ctx context.Context, mentorID, sessionID string) (SessionBreakdown, error) {
	filter := bson.D{{Key: "mentorId", Value: mentorID}, {Key: "sessionId", Value: sessionID}}

	raw, err := s.collection.FindOne(ctx, filter).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return SessionBreakdown{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionBreakdown{}, fmt.Errorf("find session %s: %w", sessionID, err)
	}
	var doc sessionDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return SessionBreakdown{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	timeline, err := rawValueJSON(raw.Lookup("timeline"))
	if err != nil {
		return SessionBreakdown{}, fmt.Errorf("encode timeline of session %s: %w", sessionID, err)
	}
	metrics, err := rawValueJSON(raw.Lookup("metrics"))
	if err != nil {
		return SessionBreakdown{}, fmt.Errorf("encode metrics of session %s: %w", sessionID, err)
	}
	return BuildBreakdown(doc.record(), timeline, metrics), nil
}

func (s *MongoSessionStore) ListSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error) {
	start := time.Now()
	out, err := s.listSessions(ctx, mentorID, limit)
	observeStoreRequest("mongo", "list_sessions", err, time.Since(start))
	return out, err
}

func (s *MongoSessionStore) listSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(recordProjection)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.collection.Find(ctx, bson.D{{Key: "mentorId", Value: mentorID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find sessions for mentor %s: %w", mentorID, err)
	}
	defer cursor.Close(ctx)

	var docs []sessionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sessions for mentor %s: %w", mentorID, err)
	}
	out := make([]SessionRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.record())
	}
	return out, nil
}

func (s *MongoSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (d sessionDocument) record() SessionRecord {
	rec := SessionRecord{
		MentorID:    d.MentorID,
		SessionID:   d.SessionID,
		VideoURL:    d.VideoURL,
		SessionName: d.SessionName,
		Duration:    numericDuration(d.Duration),
	}
	if d.CreatedAt.Type == bsontype.DateTime {
		rec.CreatedAt = d.CreatedAt.Time().UTC()
	}
	return rec
}

// numericDuration coerces the stored duration to seconds; anything non-numeric is 0.
func numericDuration(v bson.RawValue) float64 {
	switch v.Type {
	case bsontype.Double:
		return v.Double()
	case bsontype.Int32:
		return float64(v.Int32())
	case bsontype.Int64:
		return float64(v.Int64())
	default:
		return 0
	}
}

// rawValueJSON renders an embedded document or array as relaxed extended JSON.
// Missing and scalar values yield nil.
func rawValueJSON(v bson.RawValue) ([]byte, error) {
	if v.Type != bsontype.EmbeddedDocument && v.Type != bsontype.Array {
		return nil, nil
	}
	wrapped, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return nil, err
	}
	var holder struct {
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(wrapped, &holder); err != nil {
		return nil, err
	}
	return holder.V, nil
}
