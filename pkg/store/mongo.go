package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/metrics"
)

// MongoStore reads and updates accounts in a MongoDB collection. Language
// preferences live in a sibling account_preferences collection keyed by
// account id.
type MongoStore struct {
	client   *mongo.Client
	accounts *mongo.Collection
	prefs    *mongo.Collection
	log      *zap.SugaredLogger
}

const defaultMongoConnectTimeout = 10 * time.Second

// OpenMongo connects to the configured MongoDB deployment and pings it once
// so connection problems surface before the first row is processed.
func OpenMongo(ctx context.Context, cfg config.MongoDB, log *zap.SugaredLogger) (*MongoStore, error) {
	timeout := defaultMongoConnectTimeout
	if cfg.ConnectTimeout != "" {
		if d, err := time.ParseDuration(cfg.ConnectTimeout); err == nil && d > 0 {
			timeout = d
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	log.Debugw("Connected to MongoDB account store", "database", cfg.Database, "collection", cfg.Collection)

	return &MongoStore{
		client:   client,
		accounts: db.Collection(cfg.Collection),
		prefs:    db.Collection("account_preferences"),
		log:      log,
	}, nil
}

// Close disconnects from the deployment.
func (m *MongoStore) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// usernameOrEmailFilter matches an exact username or a case-insensitive
// email. The email clause uses an anchored regex so the username clause
// stays case-sensitive; a collation on the whole query would weaken both.
func usernameOrEmailFilter(username, email string) bson.M {
	return bson.M{"$or": []bson.M{
		{"username": username},
		{"email": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(email) + "$", Options: "i"}},
	}}
}

// FindByUsernameOrEmail implements Store.
func (m *MongoStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*Account, error) {
	cur, err := m.accounts.Find(ctx, usernameOrEmailFilter(username, email), options.Find().SetLimit(2))
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}

	var matches []Account
	if err := cur.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &matches[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// UpdateEmail implements Store.
func (m *MongoStore) UpdateEmail(ctx context.Context, id int64, newEmail string) (*Account, error) {
	update := bson.M{"$set": bson.M{
		"email":      newEmail,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var account Account
	err := m.accounts.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	metrics.EmailsUpdated.WithLabelValues(config.DriverMongoDB).Inc()
	return &account, nil
}

// LanguagePreference implements Store.
func (m *MongoStore) LanguagePreference(ctx context.Context, id int64) (string, error) {
	filter := bson.M{"account_id": id, "key": languagePreferenceKey}

	var pref struct {
		Value string `bson:"value"`
	}
	err := m.prefs.FindOne(ctx, filter).Decode(&pref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query language preference: %w", err)
	}
	return pref.Value, nil
}
