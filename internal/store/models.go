package store

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Consignment is a carrier shipment booked for an order. At most one live
// row exists per order; the partial unique index enforces it.
type Consignment struct {
	ID                     string         `gorm:"column:id;primaryKey;type:text" json:"id"`
	OrderID                string         `gorm:"column:order_id;type:text;not null;index:IDX_myparcel_consignment_order_id_unique,unique,where:deleted_at IS NULL" json:"order_id"`
	FulfillmentID          string         `gorm:"column:fulfillment_id;type:text" json:"fulfillment_id,omitempty"`
	Carrier                string         `gorm:"column:carrier;type:text;not null" json:"carrier"`
	MyParcelID             string         `gorm:"column:myparcel_id;type:text;index:IDX_myparcel_consignment_myparcel_id" json:"myparcel_id,omitempty"`
	Reference              string         `gorm:"column:reference;type:text" json:"reference,omitempty"`
	Status                 string         `gorm:"column:status;type:text;not null;default:concept" json:"status"`
	Barcode                string         `gorm:"column:barcode;type:text;index:IDX_myparcel_consignment_barcode" json:"barcode,omitempty"`
	TrackTraceURL          string         `gorm:"column:track_trace_url;type:text" json:"track_trace_url,omitempty"`
	TrackTraceStatus       string         `gorm:"column:track_trace_status;type:text" json:"track_trace_status,omitempty"`
	LabelFormat            string         `gorm:"column:label_format;type:text;not null;default:A6" json:"label_format"`
	LabelPosition          int            `gorm:"column:label_position;not null;default:1" json:"label_position"`
	OptionsJSON            JSONB          `gorm:"column:options_json;type:jsonb" json:"options_json,omitempty"`
	RecipientSnapshotJSON  JSONB          `gorm:"column:recipient_snapshot_json;type:jsonb" json:"recipient_snapshot_json,omitempty"`
	TrackTraceHistoryJSON  JSONList       `gorm:"column:track_trace_history_json;type:jsonb" json:"track_trace_history_json,omitempty"`
	ErrorsJSON             JSONB          `gorm:"column:errors_json;type:jsonb" json:"errors_json,omitempty"`
	LastSyncedAt           *time.Time     `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	ReturnLabelSentAt      *time.Time     `gorm:"column:return_label_sent_at" json:"return_label_sent_at,omitempty"`
	ReturnLabelEmailStatus string         `gorm:"column:return_label_email_status;type:text" json:"return_label_email_status,omitempty"`
	CreatedAt              time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

// TableName keeps the table name stable across renames of the Go type.
func (Consignment) TableName() string {
	return "myparcel_consignment"
}

// BeforeCreate assigns an id.
func (c *Consignment) BeforeCreate(tx *gorm.DB) error {
	c.assignID()
	return nil
}

func (c *Consignment) assignID() {
	if c.ID == "" {
		c.ID = "mpc_" + ulid.Make().String()
	}
}

// Setting holds the tenant's MyParcel configuration.
type Setting struct {
	ID                 string         `gorm:"column:id;primaryKey;type:text" json:"id"`
	APIKeyEnc          string         `gorm:"column:api_key_enc;type:text" json:"-"`
	APIKeyLast4        string         `gorm:"column:api_key_last4;type:text" json:"-"`
	Environment        string         `gorm:"column:environment;type:text;not null;default:production" json:"environment"`
	DefaultCarrier     string         `gorm:"column:default_carrier;type:text;not null;default:bpost" json:"default_carrier"`
	AllowedCarriers    StringList     `gorm:"column:allowed_carriers;type:jsonb" json:"allowed_carriers"`
	DefaultLabelFormat string         `gorm:"column:default_label_format;type:text;not null;default:A6" json:"default_label_format"`
	DefaultA4Position  int            `gorm:"column:default_a4_position;not null;default:1" json:"default_a4_position"`
	UseDeliveryDate    int            `gorm:"column:use_delivery_date;not null;default:0" json:"use_delivery_date"`
	CreatedAt          time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

// TableName keeps the table name stable across renames of the Go type.
func (Setting) TableName() string {
	return "myparcel_setting"
}

// BeforeCreate assigns an id.
func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	s.assignID()
	return nil
}

func (s *Setting) assignID() {
	if s.ID == "" {
		s.ID = "mps_" + ulid.Make().String()
	}
}

// DeliveryDateEnabled reports whether delivery dates are sent to the carrier.
func (s *Setting) DeliveryDateEnabled() bool {
	return s.UseDeliveryDate == 1
}

// HasAPIKey reports whether an encrypted API key is stored.
func (s *Setting) HasAPIKey() bool {
	return s.APIKeyEnc != ""
}
