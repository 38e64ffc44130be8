package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/mint/asset"
	"github.com/xraph/mint/custody"
	"github.com/xraph/mint/id"
	"github.com/xraph/mint/intent"
	"github.com/xraph/mint/subscription"
	"github.com/xraph/mint/types"
)

// ==================== Asset models ====================

type assetModel struct {
	grove.BaseModel `grove:"table:mint_assets"`

	ID              string            `grove:"id,pk"`
	CreatorID       string            `grove:"creator_id"`
	Code            string            `grove:"code"`
	Issuer          string            `grove:"issuer"`
	StorageAccount  string            `grove:"storage_account"`
	LimitAmount     int64             `grove:"limit_amount"`
	LimitUnit       string            `grove:"limit_unit"`
	HomeDomain      string            `grove:"home_domain"`
	ContentPointer  string            `grove:"content_pointer"`
	ClawbackEnabled bool              `grove:"clawback_enabled"`
	IssuerLocked    bool              `grove:"issuer_locked"`
	State           string            `grove:"state"`
	IssuanceHash    string            `grove:"issuance_hash"`
	Redemptions     int64             `grove:"redemptions"`
	Clawbacks       int64             `grove:"clawbacks"`
	ActivatedAt     *time.Time        `grove:"activated_at"`
	Metadata        map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt       time.Time         `grove:"created_at"`
	UpdatedAt       time.Time         `grove:"updated_at"`
}

func toAssetModel(r *asset.Record) *assetModel {
	return &assetModel{
		ID:              r.ID.String(),
		CreatorID:       r.CreatorID,
		Code:            r.Code,
		Issuer:          r.Issuer,
		StorageAccount:  r.StorageAccount,
		LimitAmount:     r.Limit.Amount,
		LimitUnit:       string(r.Limit.Unit),
		HomeDomain:      r.HomeDomain,
		ContentPointer:  r.ContentPointer,
		ClawbackEnabled: r.ClawbackEnabled,
		IssuerLocked:    r.IssuerLocked,
		State:           string(r.State),
		IssuanceHash:    r.IssuanceHash,
		Redemptions:     r.Redemptions,
		Clawbacks:       r.Clawbacks,
		ActivatedAt:     r.ActivatedAt,
		Metadata:        r.Metadata,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func fromAssetModel(m *assetModel) (*asset.Record, error) {
	assetID, err := id.ParseAssetID(m.ID)
	if err != nil {
		return nil, err
	}

	return &asset.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              assetID,
		CreatorID:       m.CreatorID,
		Code:            m.Code,
		Issuer:          m.Issuer,
		StorageAccount:  m.StorageAccount,
		Limit:           types.Money{Amount: m.LimitAmount, Unit: types.Unit(m.LimitUnit)},
		HomeDomain:      m.HomeDomain,
		ContentPointer:  m.ContentPointer,
		ClawbackEnabled: m.ClawbackEnabled,
		IssuerLocked:    m.IssuerLocked,
		State:           asset.State(m.State),
		IssuanceHash:    m.IssuanceHash,
		Redemptions:     m.Redemptions,
		Clawbacks:       m.Clawbacks,
		ActivatedAt:     m.ActivatedAt,
		Metadata:        m.Metadata,
	}, nil
}

// ==================== Keypair models ====================

type keypairModel struct {
	grove.BaseModel `grove:"table:mint_keypairs"`

	ID           string     `grove:"id,pk"`
	Role         string     `grove:"role"`
	OwnerID      string     `grove:"owner_id"`
	PublicKey    string     `grove:"public_key"`
	SealedSecret []byte     `grove:"sealed_secret,type:bytea"`
	Retired      bool       `grove:"retired"`
	RetiredAt    *time.Time `grove:"retired_at"`
	CreatedAt    time.Time  `grove:"created_at"`
	UpdatedAt    time.Time  `grove:"updated_at"`
}

func toKeypairModel(kp *custody.Keypair) *keypairModel {
	return &keypairModel{
		ID:           kp.ID.String(),
		Role:         string(kp.Role),
		OwnerID:      kp.OwnerID,
		PublicKey:    kp.PublicKey,
		SealedSecret: kp.SealedSecret,
		Retired:      kp.Retired,
		RetiredAt:    kp.RetiredAt,
		CreatedAt:    kp.CreatedAt,
		UpdatedAt:    kp.UpdatedAt,
	}
}

func fromKeypairModel(m *keypairModel) (*custody.Keypair, error) {
	kpID, err := id.ParseKeypairID(m.ID)
	if err != nil {
		return nil, err
	}

	return &custody.Keypair{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           kpID,
		Role:         custody.Role(m.Role),
		OwnerID:      m.OwnerID,
		PublicKey:    m.PublicKey,
		SealedSecret: m.SealedSecret,
		Retired:      m.Retired,
		RetiredAt:    m.RetiredAt,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:mint_subscriptions"`

	ID                 string            `grove:"id,pk"`
	FanAccount         string            `grove:"fan_account"`
	CreatorID          string            `grove:"creator_id"`
	CreatorAccount     string            `grove:"creator_account"`
	AssetID            string            `grove:"asset_id"`
	Tier               string            `grove:"tier"`
	PriceAmount        int64             `grove:"price_amount"`
	PriceUnit          string            `grove:"price_unit"`
	PeriodNanos        int64             `grove:"period_ns"`
	Status             string            `grove:"status"`
	CurrentPeriodStart time.Time         `grove:"current_period_start"`
	CurrentPeriodEnd   time.Time         `grove:"current_period_end"`
	RenewedAt          *time.Time        `grove:"renewed_at"`
	CanceledAt         *time.Time        `grove:"canceled_at"`
	TxHash             string            `grove:"tx_hash"`
	Metadata           map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt          time.Time         `grove:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 s.ID.String(),
		FanAccount:         s.FanAccount,
		CreatorID:          s.CreatorID,
		CreatorAccount:     s.CreatorAccount,
		AssetID:            s.AssetID.String(),
		Tier:               s.Tier,
		PriceAmount:        s.Price.Amount,
		PriceUnit:          string(s.Price.Unit),
		PeriodNanos:        int64(s.Period),
		Status:             string(s.Status),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		RenewedAt:          s.RenewedAt,
		CanceledAt:         s.CanceledAt,
		TxHash:             s.TxHash,
		Metadata:           s.Metadata,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	var assetID id.AssetID
	if m.AssetID != "" {
		if assetID, err = id.ParseAssetID(m.AssetID); err != nil {
			return nil, err
		}
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 subID,
		FanAccount:         m.FanAccount,
		CreatorID:          m.CreatorID,
		CreatorAccount:     m.CreatorAccount,
		AssetID:            assetID,
		Tier:               m.Tier,
		Price:              types.Money{Amount: m.PriceAmount, Unit: types.Unit(m.PriceUnit)},
		Period:             time.Duration(m.PeriodNanos),
		Status:             subscription.Status(m.Status),
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		RenewedAt:          m.RenewedAt,
		CanceledAt:         m.CanceledAt,
		TxHash:             m.TxHash,
		Metadata:           m.Metadata,
	}, nil
}

// ==================== Vanity models ====================

type vanityModel struct {
	grove.BaseModel `grove:"table:mint_vanities"`

	ID        string     `grove:"id,pk"`
	Slug      string     `grove:"slug"`
	OwnerID   string     `grove:"owner_id"`
	Status    string     `grove:"status"`
	ExpiresAt time.Time  `grove:"expires_at"`
	RenewedAt *time.Time `grove:"renewed_at"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toVanityModel(v *subscription.Vanity) *vanityModel {
	return &vanityModel{
		ID:        v.ID.String(),
		Slug:      v.Slug,
		OwnerID:   v.OwnerID,
		Status:    string(v.Status),
		ExpiresAt: v.ExpiresAt,
		RenewedAt: v.RenewedAt,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func fromVanityModel(m *vanityModel) (*subscription.Vanity, error) {
	vanID, err := id.ParseVanityID(m.ID)
	if err != nil {
		return nil, err
	}

	return &subscription.Vanity{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        vanID,
		Slug:      m.Slug,
		OwnerID:   m.OwnerID,
		Status:    subscription.Status(m.Status),
		ExpiresAt: m.ExpiresAt,
		RenewedAt: m.RenewedAt,
	}, nil
}

// ==================== Intent models ====================

type intentModel struct {
	grove.BaseModel `grove:"table:mint_intents"`

	ID             string     `grove:"id,pk"`
	Hash           string     `grove:"hash"`
	Kind           string     `grove:"kind"`
	Source         string     `grove:"source"`
	AssetID        string     `grove:"asset_id"`
	SubscriptionID string     `grove:"subscription_id"`
	Status         string     `grove:"status"`
	Reason         string     `grove:"reason"`
	ConfirmedAt    *time.Time `grove:"confirmed_at"`
	Ledger         int32      `grove:"ledger"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toIntentModel(in *intent.Intent) *intentModel {
	m := &intentModel{
		ID:          in.ID.String(),
		Hash:        in.Hash,
		Kind:        string(in.Kind),
		Source:      in.Source,
		Status:      string(in.Status),
		Reason:      in.Reason,
		ConfirmedAt: in.ConfirmedAt,
		Ledger:      in.Ledger,
		CreatedAt:   in.CreatedAt,
		UpdatedAt:   in.UpdatedAt,
	}
	if !in.AssetID.IsNil() {
		m.AssetID = in.AssetID.String()
	}
	if !in.SubscriptionID.IsNil() {
		m.SubscriptionID = in.SubscriptionID.String()
	}
	return m
}

func fromIntentModel(m *intentModel) (*intent.Intent, error) {
	intID, err := id.ParseIntentID(m.ID)
	if err != nil {
		return nil, err
	}
	in := &intent.Intent{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          intID,
		Hash:        m.Hash,
		Kind:        intent.Kind(m.Kind),
		Source:      m.Source,
		Status:      intent.Status(m.Status),
		Reason:      m.Reason,
		ConfirmedAt: m.ConfirmedAt,
		Ledger:      m.Ledger,
	}
	if m.AssetID != "" {
		if in.AssetID, err = id.ParseAssetID(m.AssetID); err != nil {
			return nil, err
		}
	}
	if m.SubscriptionID != "" {
		if in.SubscriptionID, err = id.ParseSubscriptionID(m.SubscriptionID); err != nil {
			return nil, err
		}
	}
	return in, nil
}
