package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gupayment/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionStore persists subscriptions in a table whose name and owner
// foreign key column are chosen by configuration.
type SubscriptionStore struct {
	db       *gorm.DB
	table    string
	ownerKey string
}

func NewSubscriptionStore(db *gorm.DB, table, ownerKey string) *SubscriptionStore {
	return &SubscriptionStore{db: db, table: table, ownerKey: ownerKey}
}

// Table returns the configured table name
func (s *SubscriptionStore) Table() string {
	return s.table
}

// Migrate creates the table and adds the owner column when missing
func (s *SubscriptionStore) Migrate() error {
	if err := s.db.Table(s.table).AutoMigrate(&models.Subscription{}); err != nil {
		return err
	}
	if s.HasColumn(s.ownerKey) {
		return nil
	}
	return s.db.Exec("ALTER TABLE ? ADD COLUMN ? bigint",
		clause.Table{Name: s.table}, clause.Column{Name: s.ownerKey}).Error
}

// HasColumn reports whether the subscriptions table has the given column
func (s *SubscriptionStore) HasColumn(name string) bool {
	return s.db.Migrator().HasColumn(s.table, name)
}

// query selects every column plus the owner key aliased as owner_id
func (s *SubscriptionStore) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table(s.table).
		Select("?.*, ? AS owner_id", clause.Table{Name: s.table}, clause.Column{Name: s.ownerKey})
}

func (s *SubscriptionStore) ownedBy(ownerID uint) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: s.ownerKey}, Value: ownerID}
}

// Create inserts sub for ownerID. Keys of extra that match an existing column
// are stored alongside; the rest, and the primary key, are dropped.
func (s *SubscriptionStore) Create(ctx context.Context, ownerID uint, sub *models.Subscription, extra map[string]interface{}) error {
	now := time.Now()
	row := map[string]interface{}{}
	for key, value := range extra {
		if key == "id" {
			continue
		}
		if s.HasColumn(key) {
			row[key] = value
		}
	}
	row[s.ownerKey] = ownerID
	row["name"] = sub.Name
	row["gateway_id"] = sub.GatewayID
	row["plan_identifier"] = sub.PlanIdentifier
	row["trial_ends_at"] = sub.TrialEndsAt
	row["ends_at"] = sub.EndsAt
	row["created_at"] = now
	row["updated_at"] = now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.table).Create(row).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		// map inserts do not back-fill the primary key
		var created models.Subscription
		err := tx.Table(s.table).
			Select("?.*, ? AS owner_id", clause.Table{Name: s.table}, clause.Column{Name: s.ownerKey}).
			Where(s.ownedBy(ownerID)).
			Where("gateway_id = ?", sub.GatewayID).
			Order("id DESC").
			First(&created).Error
		if err != nil {
			return fmt.Errorf("failed to reload subscription: %w", err)
		}
		*sub = created
		return nil
	})
}

// Save writes the mutable lifecycle columns of sub
func (s *SubscriptionStore) Save(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"plan_identifier": sub.PlanIdentifier,
			"trial_ends_at":   sub.TrialEndsAt,
			"ends_at":         sub.EndsAt,
			"updated_at":      now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	sub.UpdatedAt = now
	return nil
}

// ForOwner returns every subscription of the owner, newest first
func (s *SubscriptionStore) ForOwner(ctx context.Context, ownerID uint) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := s.query(ctx).
		Where(s.ownedBy(ownerID)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&subscriptions).Error
	return subscriptions, err
}

// LatestByName returns the most recently created subscription with the given
// name, or nil when there is none.
func (s *SubscriptionStore) LatestByName(ctx context.Context, ownerID uint, name string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.query(ctx).
		Where(s.ownedBy(ownerID)).
		Where("name = ?", name).
		Order("created_at DESC").
		Order("id DESC").
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

// HasPlan reports whether the owner has any subscription on plan
func (s *SubscriptionStore) HasPlan(ctx context.Context, ownerID uint, plan string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where(s.ownedBy(ownerID)).
		Where("plan_identifier = ?", plan).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByGatewayID looks a subscription up by its gateway id.
// Returns gorm.ErrRecordNotFound when no row matches.
func (s *SubscriptionStore) FindByGatewayID(ctx context.Context, gatewayID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.query(ctx).
		Where("gateway_id = ?", gatewayID).
		Order("id DESC").
		First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}
