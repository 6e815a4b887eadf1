// Package domain defines the persistence models for the marketing site:
// blog posts with per-IP view tracking, lead-capture submissions, and
// newsletter subscribers. These types are mapped with GORM and form the
// core data layer of the application.
package domain

import (
	"time"
)

// Post represents a published (or draft) blog article. The aggregate
// ViewCount may exceed the number of PostView rows because it can include
// views recorded before per-IP tracking existed.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Slug: URL identifier, unique across all posts.
//   - Content: article body in Markdown; rendered to sanitized HTML at read time.
//   - ViewCount: aggregate view counter, incremented once per unique IP.
//   - IsPublished: only published posts are served publicly.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Post struct {
	ID              string    `json:"id"                gorm:"type:char(36);primaryKey"`
	Slug            string    `json:"slug"              gorm:"type:varchar(200);not null;uniqueIndex"`
	Title           string    `json:"title"             gorm:"type:varchar(200);not null"`
	Excerpt         string    `json:"excerpt"           gorm:"type:varchar(300)"`
	Content         string    `json:"content"           gorm:"type:text;not null"`
	Category        string    `json:"category"          gorm:"type:varchar(20);not null;default:'events';index"`
	Author          string    `json:"author"            gorm:"type:varchar(100);not null;default:'Editorial Team'"`
	ReadTimeMinutes int       `json:"read_time_minutes" gorm:"not null;default:3"`
	ViewCount       int64     `json:"view_count"        gorm:"not null;default:0;check:view_count >= 0"`
	IsFeatured      bool      `json:"is_featured"       gorm:"not null;default:false"`
	IsPublished     bool      `json:"is_published"      gorm:"not null;default:true;index"`
	CreatedAt       time.Time `json:"created_at"        gorm:"index"`
	UpdatedAt       time.Time `json:"updated_at"`

	Tags []Tag `json:"tags,omitempty" gorm:"many2many:post_tags"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Tag is a label attached to posts for categorisation and filtering.
type Tag struct {
	ID   string `json:"id"   gorm:"type:char(36);primaryKey"`
	Name string `json:"name" gorm:"type:varchar(50);not null;uniqueIndex"`
	Slug string `json:"slug" gorm:"type:varchar(50);not null;uniqueIndex"`
}

// TableName returns the database table name for Tag.
func (Tag) TableName() string { return "tags" }

// PostView records the first visit from an IP address to a post. The unique
// index on (post_id, ip_address) is the source of truth for view
// deduplication: at most one row per post per IP, ever. Rows are immutable —
// they are created once and never updated or deleted.
type PostView struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id"    gorm:"type:char(36);not null;uniqueIndex:ux_post_ip,priority:1"`
	IPAddress string    `json:"ip_address" gorm:"type:varchar(45);not null;uniqueIndex:ux_post_ip,priority:2"`
	UserAgent string    `json:"user_agent" gorm:"type:varchar(500)"`
	ViewedAt  time.Time `json:"viewed_at"  gorm:"index"`

	// Post is the viewed article. Views are cascade-deleted if the post
	// is removed.
	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PostView.
func (PostView) TableName() string { return "post_views" }

// AdvisoryLead is a submission of the advisory-request form. Rows are
// created on submit and mutated only to flip the processed/relayed flags and
// append admin notes; the core never deletes them.
//
// Invariants:
//   - Relayed is set true only after the automation webhook confirmed
//     delivery with HTTP 200.
//   - ProcessedAt is set exactly when Processed flips to true.
type AdvisoryLead struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	Name        string     `json:"name"         gorm:"type:varchar(200);not null"`
	Email       string     `json:"email"        gorm:"type:varchar(254);not null;index"`
	Phone       string     `json:"phone"        gorm:"type:varchar(20);not null"`
	Message     string     `json:"message"      gorm:"type:text;not null"`
	SubmittedAt time.Time  `json:"submitted_at" gorm:"index"`
	IPAddress   string     `json:"ip_address"   gorm:"type:varchar(45)"`
	UserAgent   string     `json:"user_agent"   gorm:"type:varchar(500)"`
	Processed   bool       `json:"processed"    gorm:"not null;default:false;index"`
	Relayed     bool       `json:"relayed"      gorm:"not null;default:false;index"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	AdminNotes  string     `json:"admin_notes"  gorm:"type:text"`
}

// TableName returns the database table name for AdvisoryLead.
func (AdvisoryLead) TableName() string { return "advisory_leads" }

// QuoteLead is a submission of the quotation-request form. It carries the
// shipping route (origin and destination country) and requested service type
// in addition to the common contact fields. Status semantics are identical
// to AdvisoryLead.
type QuoteLead struct {
	ID                 string     `json:"id"                  gorm:"type:char(36);primaryKey"`
	Name               string     `json:"name"                gorm:"type:varchar(200);not null"`
	Company            string     `json:"company"             gorm:"type:varchar(200)"`
	Email              string     `json:"email"               gorm:"type:varchar(254);not null;index"`
	Phone              string     `json:"phone"               gorm:"type:varchar(20);not null"`
	OriginCountry      string     `json:"origin_country"      gorm:"type:varchar(100);not null;index"`
	DestinationCountry string     `json:"destination_country" gorm:"type:varchar(100);not null;index"`
	ServiceType        string     `json:"service_type"        gorm:"type:varchar(100);not null;index"`
	Message            string     `json:"message"             gorm:"type:text;not null"`
	SubmittedAt        time.Time  `json:"submitted_at"        gorm:"index"`
	IPAddress          string     `json:"ip_address"          gorm:"type:varchar(45)"`
	UserAgent          string     `json:"user_agent"          gorm:"type:varchar(500)"`
	Processed          bool       `json:"processed"           gorm:"not null;default:false;index"`
	Relayed            bool       `json:"relayed"             gorm:"not null;default:false;index"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
	AdminNotes         string     `json:"admin_notes"         gorm:"type:text"`
}

// TableName returns the database table name for QuoteLead.
func (QuoteLead) TableName() string { return "quote_leads" }

// Subscriber is a newsletter recipient. There is at most one row per email
// (normalized to lower case before storage), preserved across unsubscribe
// and resubscribe cycles: resubscription reactivates the existing row
// instead of creating a new identity.
//
// Invariant: IsActive == false implies UnsubscribedAt is set, except for
// rows imported before unsubscribe tracking existed.
type Subscriber struct {
	ID                  string     `json:"id"                    gorm:"type:char(36);primaryKey"`
	Email               string     `json:"email"                 gorm:"type:varchar(254);not null;uniqueIndex"`
	Name                string     `json:"name"                  gorm:"type:varchar(100)"`
	SubscribedAt        time.Time  `json:"subscribed_at"         gorm:"index"`
	IsActive            bool       `json:"is_active"             gorm:"not null;default:true;index"`
	ConsentGiven        bool       `json:"consent_given"         gorm:"not null;default:true"`
	ConsentAt           time.Time  `json:"consent_at"`
	UnsubscribedAt      *time.Time `json:"unsubscribed_at,omitempty"`
	RelayedToAutomation bool       `json:"relayed_to_automation" gorm:"not null;default:false;index"`
	IPAddress           string     `json:"ip_address"            gorm:"type:varchar(45)"`
	UserAgent           string     `json:"user_agent"            gorm:"type:text"`
	SourcePage          string     `json:"source_page"           gorm:"type:varchar(200)"`
	Notes               string     `json:"notes"                 gorm:"type:text"`
}

// TableName returns the database table name for Subscriber.
func (Subscriber) TableName() string { return "subscribers" }
