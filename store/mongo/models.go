package mongo

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

type moneyModel struct {
	Amount int64  `bson:"amount"`
	Unit   string `bson:"unit"`
}

func toMoneyModel(m types.Money) moneyModel {
	return moneyModel{Amount: m.Amount, Unit: string(m.Unit)}
}

func (m moneyModel) money() types.Money {
	return types.Money{Amount: m.Amount, Unit: types.Unit(m.Unit)}
}

// ==================== Asset models ====================

type assetModel struct {
	grove.BaseModel `grove:"table:mint_assets"`

	ID              string            `grove:"id,pk"            bson:"_id"`
	CreatorID       string            `grove:"creator_id"       bson:"creator_id"`
	Code            string            `grove:"code"             bson:"code"`
	Issuer          string            `grove:"issuer"           bson:"issuer"`
	StorageAccount  string            `grove:"storage_account"  bson:"storage_account"`
	Limit           moneyModel        `grove:"limit"            bson:"limit"`
	HomeDomain      string            `grove:"home_domain"      bson:"home_domain"`
	ContentPointer  string            `grove:"content_pointer"  bson:"content_pointer"`
	ClawbackEnabled bool              `grove:"clawback_enabled" bson:"clawback_enabled"`
	IssuerLocked    bool              `grove:"issuer_locked"    bson:"issuer_locked"`
	State           string            `grove:"state"            bson:"state"`
	IssuanceHash    string            `grove:"issuance_hash"    bson:"issuance_hash,omitempty"`
	Redemptions     int64             `grove:"redemptions"      bson:"redemptions"`
	Clawbacks       int64             `grove:"clawbacks"        bson:"clawbacks"`
	ActivatedAt     *time.Time        `grove:"activated_at"     bson:"activated_at,omitempty"`
	Metadata        map[string]string `grove:"metadata"         bson:"metadata,omitempty"`
	CreatedAt       time.Time         `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time         `grove:"updated_at"       bson:"updated_at"`
}

func toAssetModel(r *asset.Record) *assetModel {
	return &assetModel{
		ID:              r.ID.String(),
		CreatorID:       r.CreatorID,
		Code:            r.Code,
		Issuer:          r.Issuer,
		StorageAccount:  r.StorageAccount,
		Limit:           toMoneyModel(r.Limit),
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
		Limit:           m.Limit.money(),
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

	ID           string     `grove:"id,pk"         bson:"_id"`
	Role         string     `grove:"role"          bson:"role"`
	OwnerID      string     `grove:"owner_id"      bson:"owner_id"`
	PublicKey    string     `grove:"public_key"    bson:"public_key"`
	SealedSecret []byte     `grove:"sealed_secret" bson:"sealed_secret"`
	Retired      bool       `grove:"retired"       bson:"retired"`
	RetiredAt    *time.Time `grove:"retired_at"    bson:"retired_at,omitempty"`
	CreatedAt    time.Time  `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time  `grove:"updated_at"    bson:"updated_at"`
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

	ID                 string            `grove:"id,pk"                bson:"_id"`
	FanAccount         string            `grove:"fan_account"          bson:"fan_account"`
	CreatorID          string            `grove:"creator_id"           bson:"creator_id"`
	CreatorAccount     string            `grove:"creator_account"      bson:"creator_account"`
	AssetID            string            `grove:"asset_id"             bson:"asset_id"`
	Tier               string            `grove:"tier"                 bson:"tier"`
	Price              moneyModel        `grove:"price"                bson:"price"`
	Period             time.Duration     `grove:"period"               bson:"period"`
	Status             string            `grove:"status"               bson:"status"`
	CurrentPeriodStart time.Time         `grove:"current_period_start" bson:"current_period_start"`
	CurrentPeriodEnd   time.Time         `grove:"current_period_end"   bson:"current_period_end"`
	RenewedAt          *time.Time        `grove:"renewed_at"           bson:"renewed_at,omitempty"`
	CanceledAt         *time.Time        `grove:"canceled_at"          bson:"canceled_at,omitempty"`
	TxHash             string            `grove:"tx_hash"              bson:"tx_hash,omitempty"`
	Metadata           map[string]string `grove:"metadata"             bson:"metadata,omitempty"`
	CreatedAt          time.Time         `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"           bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 s.ID.String(),
		FanAccount:         s.FanAccount,
		CreatorID:          s.CreatorID,
		CreatorAccount:     s.CreatorAccount,
		AssetID:            s.AssetID.String(),
		Tier:               s.Tier,
		Price:              toMoneyModel(s.Price),
		Period:             s.Period,
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
		Price:              m.Price.money(),
		Period:             m.Period,
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

	ID        string     `grove:"id,pk"      bson:"_id"`
	Slug      string     `grove:"slug"       bson:"slug"`
	OwnerID   string     `grove:"owner_id"   bson:"owner_id"`
	Status    string     `grove:"status"     bson:"status"`
	ExpiresAt time.Time  `grove:"expires_at" bson:"expires_at"`
	RenewedAt *time.Time `grove:"renewed_at" bson:"renewed_at,omitempty"`
	CreatedAt time.Time  `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at" bson:"updated_at"`
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

	ID             string     `grove:"id,pk"           bson:"_id"`
	Hash           string     `grove:"hash"            bson:"hash"`
	Kind           string     `grove:"kind"            bson:"kind"`
	Source         string     `grove:"source"          bson:"source"`
	AssetID        string     `grove:"asset_id"        bson:"asset_id,omitempty"`
	SubscriptionID string     `grove:"subscription_id" bson:"subscription_id,omitempty"`
	Status         string     `grove:"status"          bson:"status"`
	Reason         string     `grove:"reason"          bson:"reason,omitempty"`
	ConfirmedAt    *time.Time `grove:"confirmed_at"    bson:"confirmed_at,omitempty"`
	Ledger         int32      `grove:"ledger"          bson:"ledger"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
}

func toIntentModel(in *intent.Intent) *intentModel {
	return &intentModel{
		ID:             in.ID.String(),
		Hash:           in.Hash,
		Kind:           string(in.Kind),
		Source:         in.Source,
		AssetID:        in.AssetID.String(),
		SubscriptionID: in.SubscriptionID.String(),
		Status:         string(in.Status),
		Reason:         in.Reason,
		ConfirmedAt:    in.ConfirmedAt,
		Ledger:         in.Ledger,
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
	}
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
