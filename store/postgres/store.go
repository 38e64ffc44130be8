package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/intent"
	mintstore "github.com/xraph/mint/store"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/types"
)

// compile-time interface check
var _ mintstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("mint/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("mint/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(toAssetModel(r)).Exec(ctx)
	return mapInsertErr(err)
}

func (s *Store) GetAsset(ctx context.Context, assetID id.AssetID) (*asset.Record, error) {
	m := new(assetModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", assetID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, types.ErrAssetNotFound
		}
		return nil, err
	}
	return fromAssetModel(m)
}

func (s *Store) GetAssetByCode(ctx context.Context, code, issuer string) (*asset.Record, error) {
	m := new(assetModel)
	err := s.pg.NewSelect(m).
		Where("code = $1", code).
		Where("issuer = $2", issuer).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, types.ErrAssetNotFound
		}
		return nil, err
	}
	return fromAssetModel(m)
}

func (s *Store) ListAssets(ctx context.Context, creatorID string, opts asset.ListOpts) ([]*asset.Record, error) {
	var models []assetModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if creatorID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("creator_id = $%d", argIdx), creatorID)
	}
	if opts.State != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("state = $%d", argIdx), string(opts.State))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, types.ErrAssetNotFound)
}

// ==================== Keypair Store ====================

func (s *Store) CreateKeypair(ctx context.Context, kp *custody.Keypair) error {
	_, err := s.pg.NewInsert(toKeypairModel(kp)).Exec(ctx)
	return mapInsertErr(err)
}

func (s *Store) GetKeypair(ctx context.Context, kpID id.KeypairID) (*custody.Keypair, error) {
	m := new(keypairModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", kpID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, types.ErrKeypairNotFound
		}
		return nil, err
	}
	return fromKeypairModel(m)
}

func (s *Store) GetKeypairByPublicKey(ctx context.Context, publicKey string) (*custody.Keypair, error) {
	m := new(keypairModel)
	err := s.pg.NewSelect(m).
		Where("public_key = $1", publicKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, types.ErrKeypairNotFound
		}
		return nil, err
	}
	return fromKeypairModel(m)
}

func (s *Store) ListKeypairs(ctx context.Context, ownerID string, role custody.Role) ([]*custody.Keypair, error) {
	var models []keypairModel
	q := s.pg.NewSelect(&models).Where("owner_id = $1", ownerID)
	if role != "" {
		q = q.Where("role = $2", string(role))
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate((*keypairModel)(nil)).
		Set("retired = $1", true).
		Set("retired_at = COALESCE(retired_at, $2)", t).
		Set("updated_at = $3", t).
		Where("public_key = $4", publicKey).
		Exec(ctx)
	return affected(res, err, types.ErrKeypairNotFound)
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.pg.NewInsert(toSubscriptionModel(sub)).Exec(ctx)
	return mapInsertErr(err)
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, types.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptions(ctx context.Context, fanAccount string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if fanAccount != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("fan_account = $%d", argIdx), fanAccount)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.CreatorID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("creator_id = $%d", argIdx), opts.CreatorID)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromSubscriptionModels(models)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, types.ErrSubscriptionNotFound)
}

func (s *Store) ListDueSubscriptions(ctx context.Context, before time.Time) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.pg.NewSelect(&models).
		Where("status IN ($1, $2)", string(subscription.StatusActive), string(subscription.StatusCanceled)).
		Where("current_period_end <= $3", before).
		OrderExpr("current_period_end ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(toVanityModel(v)).Exec(ctx)
	return mapInsertErr(err)
}

func (s *Store) GetVanity(ctx context.Context, slug string) (*subscription.Vanity, error) {
	m := new(vanityModel)
	err := s.pg.NewSelect(m).
		Where("slug = $1", slug).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, types.ErrVanityNotFound
		}
		return nil, err
	}
	return fromVanityModel(m)
}

func (s *Store) UpdateVanity(ctx context.Context, v *subscription.Vanity) error {
	m := toVanityModel(v)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, types.ErrVanityNotFound)
}

func (s *Store) ListDueVanities(ctx context.Context, before time.Time) ([]*subscription.Vanity, error) {
	var models []vanityModel
	err := s.pg.NewSelect(&models).
		Where("status = $1", string(subscription.StatusActive)).
		Where("expires_at <= $2", before).
		OrderExpr("expires_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(toIntentModel(in)).Exec(ctx)
	return mapInsertErr(err)
}

func (s *Store) GetIntentByHash(ctx context.Context, hash string) (*intent.Intent, error) {
	m := new(intentModel)
	err := s.pg.NewSelect(m).
		Where("hash = $1", hash).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, types.ErrIntentNotFound
		}
		return nil, err
	}
	return fromIntentModel(m)
}

func (s *Store) UpdateIntent(ctx context.Context, in *intent.Intent) error {
	m := toIntentModel(in)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	return affected(res, err, types.ErrIntentNotFound)
}

func (s *Store) ListPendingIntents(ctx context.Context, before time.Time) ([]*intent.Intent, error) {
	var models []intentModel
	err := s.pg.NewSelect(&models).
		Where("status = $1", string(intent.StatusPending)).
		Where("created_at < $2", before).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mapInsertErr turns a unique violation (SQLSTATE 23505) into ErrAlreadyExists.
func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key") {
		return fmt.Errorf("%w: %v", types.ErrAlreadyExists, err)
	}
	return err
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

// affected maps a zero-row update to notFound.
func affected(res rowsAffected, err error, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
