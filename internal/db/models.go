package db

import (
	"encoding/json"
	"time"
)

// Asset maps curio.assets. ExternalID is the catalog identifier the
// scanning stations assign; everything downstream keys on it.
type Asset struct {
	AssetID     int64           `gorm:"column:asset_id;primaryKey;autoIncrement"`
	AssetUUID   string          `gorm:"column:asset_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	ExternalID  string          `gorm:"column:external_id;type:text;not null;unique"`
	Title       string          `gorm:"column:title;type:text;not null"`
	Description string          `gorm:"column:description;type:text;not null;default:''"`
	OCRText     string          `gorm:"column:ocr_text;type:text;not null;default:''"`
	Entities    json.RawMessage `gorm:"column:entities;type:jsonb;not null;default:'[]'"`
	Keywords    json.RawMessage `gorm:"column:keywords;type:jsonb;not null;default:'[]'"`
	Collection  *string         `gorm:"column:collection;type:text"`
	GISZone     *string         `gorm:"column:gis_zone;type:text"`
	Latitude    *float64        `gorm:"column:latitude;type:double precision"`
	Longitude   *float64        `gorm:"column:longitude;type:double precision"`
	Category    *string         `gorm:"column:category;type:text"`
	Confidence  float64         `gorm:"column:confidence;type:double precision;not null;default:0"`
	Language    string          `gorm:"column:language;type:text;not null;default:und"`
	DeletedAt   *time.Time      `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Asset) TableName() string { return "curio.assets" }

// DetectionRun maps curio.detection_runs.
type DetectionRun struct {
	RunID        int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID      string     `gorm:"column:run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Threshold    float64    `gorm:"column:threshold;type:double precision;not null"`
	AssetCount   int        `gorm:"column:asset_count;type:integer;not null;default:0"`
	ClusterCount int        `gorm:"column:cluster_count;type:integer;not null;default:0"`
	UniqueCount  int        `gorm:"column:unique_count;type:integer;not null;default:0"`
	Offloaded    bool       `gorm:"column:offloaded;type:boolean;not null;default:false"`
	StartedAt    time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt   *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status       string     `gorm:"column:status;type:text;not null;default:running"`
	ErrorMessage *string    `gorm:"column:error_message;type:text"`
}

func (DetectionRun) TableName() string { return "curio.detection_runs" }

// Cluster maps curio.clusters. Manual clusters come from curator merges
// and are not replaced by later detection runs.
type Cluster struct {
	ClusterID        int64           `gorm:"column:cluster_id;primaryKey;autoIncrement"`
	ClusterUUID      string          `gorm:"column:cluster_uuid;type:uuid;not null;unique"`
	RunID            *int64          `gorm:"column:run_id;type:bigint"`
	PrimaryAssetID   int64           `gorm:"column:primary_asset_id;type:bigint;not null"`
	Similarity       float64         `gorm:"column:similarity;type:double precision;not null"`
	Reasons          json.RawMessage `gorm:"column:reasons;type:jsonb;not null;default:'[]'"`
	Title            string          `gorm:"column:title;type:text;not null"`
	Description      string          `gorm:"column:description;type:text;not null;default:''"`
	Category         *string         `gorm:"column:category;type:text"`
	MergedEntities   json.RawMessage `gorm:"column:merged_entities;type:jsonb;not null;default:'[]'"`
	MergedKeywords   json.RawMessage `gorm:"column:merged_keywords;type:jsonb;not null;default:'[]'"`
	MemberCount      int             `gorm:"column:member_count;type:integer;not null"`
	MeanConfidence   float64         `gorm:"column:mean_confidence;type:double precision;not null;default:0"`
	Manual           bool            `gorm:"column:manual;type:boolean;not null;default:false"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Cluster) TableName() string { return "curio.clusters" }

// ClusterMember maps curio.cluster_members.
type ClusterMember struct {
	ClusterID  int64   `gorm:"column:cluster_id;type:bigint;primaryKey"`
	AssetID    int64   `gorm:"column:asset_id;type:bigint;primaryKey"`
	Role       string  `gorm:"column:role;type:text;not null;default:duplicate"`
	Similarity float64 `gorm:"column:similarity;type:double precision;not null;default:0"`
}

func (ClusterMember) TableName() string { return "curio.cluster_members" }

// MergeEvent maps curio.merge_events, the audit trail of curator merges.
type MergeEvent struct {
	MergeEventID   int64           `gorm:"column:merge_event_id;primaryKey;autoIncrement"`
	MergeEventUUID string          `gorm:"column:merge_event_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	ClusterID      int64           `gorm:"column:cluster_id;type:bigint;not null"`
	PrimaryAssetID int64           `gorm:"column:primary_asset_id;type:bigint;not null"`
	MergedAssetIDs json.RawMessage `gorm:"column:merged_asset_ids;type:jsonb;not null"`
	CustomTitle    *string         `gorm:"column:custom_title;type:text"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (MergeEvent) TableName() string { return "curio.merge_events" }

func autoMigrateModels() []any {
	return []any{
		&Asset{},
		&DetectionRun{},
		&Cluster{},
		&ClusterMember{},
		&MergeEvent{},
	}
}
