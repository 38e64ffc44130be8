package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/intent"
	mintstore "github.com/xraph/mint/store"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/types"
)

// Collection name constants.
const (
	colAssets        = "mint_assets"
	colKeypairs      = "mint_keypairs"
	colSubscriptions = "mint_subscriptions"
	colVanities      = "mint_vanities"
	colIntents       = "mint_intents"
)

// compile-time interface check
var _ mintstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all mint collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("mint/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Asset Store ====================

func (s *Store) CreateAsset(ctx context.Context, r *asset.Record) error {
	_, err := s.mdb.NewInsert(toAssetModel(r)).Exec(ctx)
	if err != nil {
		return insertErr("create asset", err)
	}
	return nil
}

func (s *Store) GetAsset(ctx context.Context, assetID id.AssetID) (*asset.Record, error) {
	var m assetModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": assetID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, types.ErrAssetNotFound
		}
		return nil, fmt.Errorf("mint/mongo: get asset: %w", err)
	}
	return fromAssetModel(&m)
}

func (s *Store) GetAssetByCode(ctx context.Context, code, issuer string) (*asset.Record, error) {
	var m assetModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"code": code, "issuer": issuer}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, types.ErrAssetNotFound
		}
		return nil, fmt.Errorf("mint/mongo: get asset by code: %w", err)
	}
	return fromAssetModel(&m)
}

func (s *Store) ListAssets(ctx context.Context, creatorID string, opts asset.ListOpts) ([]*asset.Record, error) {
	var models []assetModel

	filter := bson.M{}
	if creatorID != "" {
		filter["creator_id"] = creatorID
	}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("mint/mongo: list assets: %w", err)
	}

	result := make([]*asset.Record, len(models))
	for i := range models {
		r, err := fromAssetModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) UpdateAsset(ctx context.Context, r *asset.Record) error {
	m := toAssetModel(r)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mint/mongo: update asset: %w", err)
	}
	if res.MatchedCount() == 0 {
		return types.ErrAssetNotFound
	}
	return nil
}

// ==================== Keypair Store ====================

func (s *Store) CreateKeypair(ctx context.Context, kp *custody.Keypair) error {
	_, err := s.mdb.NewInsert(toKeypairModel(kp)).Exec(ctx)
	if err != nil {
		return insertErr("create keypair", err)
	}
	return nil
}

func (s *Store) GetKeypair(ctx context.Context, kpID id.KeypairID) (*custody.Keypair, error) {
	var m keypairModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": kpID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, types.ErrKeypairNotFound
		}
		return nil, fmt.Errorf("mint/mongo: get keypair: %w", err)
	}
	return fromKeypairModel(&m)
}

func (s *Store) GetKeypairByPublicKey(ctx context.Context, publicKey string) (*custody.Keypair, error) {
	var m keypairModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"public_key": publicKey}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, types.ErrKeypairNotFound
		}
		return nil, fmt.Errorf("mint/mongo: get keypair by public key: %w", err)
	}
	return fromKeypairModel(&m)
}

func (s *Store) ListKeypairs(ctx context.Context, ownerID string, role custody.Role) ([]*custody.Keypair, error) {
	var models []keypairModel

	filter := bson.M{"owner_id": ownerID}
	if role != "" {
		filter["role"] = string(role)
	}

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint/mongo: list keypairs: %w", err)
	}

	result := make([]*custody.Keypair, len(models))
	for i := range models {
		kp, err := fromKeypairModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = kp
	}
	return result, nil
}

func (s *Store) RetireKeypair(ctx context.Context, publicKey string) error {
	t := now()
	res, err := s.mdb.NewUpdate((*keypairModel)(nil)).
		Filter(bson.M{"public_key": publicKey, "retired": false}).
		Set("retired", true).
		Set("retired_at", t).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mint/mongo: retire keypair: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}
	// Already retired is fine; only a missing key is an error.
	if _, err := s.GetKeypairByPublicKey(ctx, publicKey); err != nil {
		return err
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.mdb.NewInsert(toSubscriptionModel(sub)).Exec(ctx)
	if err != nil {
		return insertErr("create subscription", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, types.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("mint/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptions(ctx context.Context, fanAccount string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{}
	if fanAccount != "" {
		filter["fan_account"] = fanAccount
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.CreatorID != "" {
		filter["creator_id"] = opts.CreatorID
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("mint/mongo: list subscriptions: %w", err)
	}
	return fromSubscriptionModels(models)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mint/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return types.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListDueSubscriptions(ctx context.Context, before time.Time) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status": bson.M{"$in": []string{
				string(subscription.StatusActive),
				string(subscription.StatusCanceled),
			}},
			"current_period_end": bson.M{"$lte": before},
		}).
		Sort(bson.D{{Key: "current_period_end", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint/mongo: list due subscriptions: %w", err)
	}
	return fromSubscriptionModels(models)
}

func fromSubscriptionModels(models []subscriptionModel) ([]*subscription.Subscription, error) {
	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Vanity Store ====================

func (s *Store) CreateVanity(ctx context.Context, v *subscription.Vanity) error {
	_, err := s.mdb.NewInsert(toVanityModel(v)).Exec(ctx)
	if err != nil {
		return insertErr("create vanity", err)
	}
	return nil
}

func (s *Store) GetVanity(ctx context.Context, slug string) (*subscription.Vanity, error) {
	var m vanityModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"slug": slug}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, types.ErrVanityNotFound
		}
		return nil, fmt.Errorf("mint/mongo: get vanity: %w", err)
	}
	return fromVanityModel(&m)
}

func (s *Store) UpdateVanity(ctx context.Context, v *subscription.Vanity) error {
	m := toVanityModel(v)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mint/mongo: update vanity: %w", err)
	}
	if res.MatchedCount() == 0 {
		return types.ErrVanityNotFound
	}
	return nil
}

func (s *Store) ListDueVanities(ctx context.Context, before time.Time) ([]*subscription.Vanity, error) {
	var models []vanityModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":     string(subscription.StatusActive),
			"expires_at": bson.M{"$lte": before},
		}).
		Sort(bson.D{{Key: "expires_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint/mongo: list due vanities: %w", err)
	}

	result := make([]*subscription.Vanity, len(models))
	for i := range models {
		v, err := fromVanityModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

// ==================== Intent Store ====================

func (s *Store) CreateIntent(ctx context.Context, in *intent.Intent) error {
	_, err := s.mdb.NewInsert(toIntentModel(in)).Exec(ctx)
	if err != nil {
		return insertErr("create intent", err)
	}
	return nil
}

func (s *Store) GetIntentByHash(ctx context.Context, hash string) (*intent.Intent, error) {
	var m intentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"hash": hash}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, types.ErrIntentNotFound
		}
		return nil, fmt.Errorf("mint/mongo: get intent: %w", err)
	}
	return fromIntentModel(&m)
}

func (s *Store) UpdateIntent(ctx context.Context, in *intent.Intent) error {
	m := toIntentModel(in)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mint/mongo: update intent: %w", err)
	}
	if res.MatchedCount() == 0 {
		return types.ErrIntentNotFound
	}
	return nil
}

func (s *Store) ListPendingIntents(ctx context.Context, before time.Time) ([]*intent.Intent, error) {
	var models []intentModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":     string(intent.StatusPending),
			"created_at": bson.M{"$lt": before},
		}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint/mongo: list pending intents: %w", err)
	}

	result := make([]*intent.Intent, len(models))
	for i := range models {
		in, err := fromIntentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = in
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func insertErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("mint/mongo: %s: %w", op, types.ErrAlreadyExists)
	}
	return fmt.Errorf("mint/mongo: %s: %w", op, err)
}

// migrationIndexes returns the index definitions for all mint collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAssets: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}, {Key: "issuer", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "creator_id", Value: 1}, {Key: "state", Value: 1}}},
		},
		colKeypairs: {
			{
				Keys:    bson.D{{Key: "public_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "role", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "fan_account", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "creator_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "current_period_end", Value: 1}}},
		},
		colVanities: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
		colIntents: {
			{
				Keys:    bson.D{{Key: "hash", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
