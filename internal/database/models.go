package database

// EntityRecord is a tracked entity row.
type EntityRecord struct {
	ID             string `gorm:"column:id;primaryKey;size:64"`
	Game           string `gorm:"column:game;size:16;not null;index:idx_entities_game"`
	Region         string `gorm:"column:region;size:16;not null"`
	Name           string `gorm:"column:name;size:190;not null"`
	Realm          string `gorm:"column:realm;size:190;not null;default:''"`
	Tag            string `gorm:"column:tag;size:32;not null;default:''"`
	CreatedAtNanos int64  `gorm:"column:created_at_ns;not null"`
}

// TableName provides the explicit table binding for GORM.
func (EntityRecord) TableName() string {
	return "tracked_entities"
}

// SnapshotRecord is one immutable snapshot row.
type SnapshotRecord struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	EntityID        string `gorm:"column:entity_id;size:64;not null;index:idx_snapshots_entity_time,priority:1"`
	Game            string `gorm:"column:game;size:16;not null;index:idx_snapshots_game"`
	PayloadJSON     string `gorm:"column:payload_json;type:text;not null"`
	InsertedAtNanos int64  `gorm:"column:inserted_at_ns;not null;index:idx_snapshots_entity_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (SnapshotRecord) TableName() string {
	return "entity_snapshots"
}

// EventRecord is one log entry. Version is assigned on append.
type EventRecord struct {
	Version         int64  `gorm:"column:version;primaryKey;autoIncrement:false"`
	EventID         string `gorm:"column:event_id;size:64;not null;uniqueIndex:idx_events_event_id"`
	Kind            string `gorm:"column:kind;size:32;not null"`
	PayloadJSON     string `gorm:"column:payload_json;type:text;not null"`
	OccurredAtNanos int64  `gorm:"column:occurred_at_ns;not null"`
}

// TableName provides the explicit table binding for GORM.
func (EventRecord) TableName() string {
	return "sync_events"
}

// SubscriptionRecord is a subscription cursor.
type SubscriptionRecord struct {
	Name           string `gorm:"column:name;primaryKey;size:190"`
	Status         string `gorm:"column:status;size:16;not null"`
	Version        int64  `gorm:"column:version;not null;default:0"`
	UpdatedAtNanos int64  `gorm:"column:updated_at_ns;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SubscriptionRecord) TableName() string {
	return "subscription_states"
}
