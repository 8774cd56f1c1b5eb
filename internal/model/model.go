package model

import "time"

// PendingProfile holds contact details captured before the visitor
// authenticated. At most one row exists per email; rows expire after 7 days
// and are consumed on the first profile completion or login event.
type PendingProfile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile is the per-account record, keyed by the identity provider's
// subject id. Optional fields are pointers so a merge never erases a value.
type Profile struct {
	SubjectID string    `json:"subject_id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Company   *string   `json:"company"`
	Phone     *string   `json:"phone"`
	Provider  string    `json:"provider"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lead is the canonical CRM record.
type Lead struct {
	ID             int64      `json:"id"`
	SubjectID      string     `json:"subject_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Company        string     `json:"company"`
	PhoneE164      string     `json:"phone_e164"`
	Provider       string     `json:"provider"`
	Source         string     `json:"source"`
	CRMStatus      string     `json:"crm_status"`
	Urgency        string     `json:"urgency"`
	NextActionType string     `json:"next_action_type"`
	NextActionAt   *time.Time `json:"next_action_at"`
	Notes          string     `json:"notes"`
	InterestTags   []string   `json:"interest_tags"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LeadEvent is an append-only audit row for a lead mutation.
type LeadEvent struct {
	ID        int64         `json:"id"`
	LeadID    int64         `json:"lead_id"`
	EventType string        `json:"event_type"`
	Metadata  LeadEventMeta `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

// LeadEventMeta is the typed metadata payload for lead events. Extra carries
// forward-compatible keys that have no dedicated field yet.
type LeadEventMeta struct {
	Source     string            `json:"source,omitempty"`
	FromStatus string            `json:"from_status,omitempty"`
	ToStatus   string            `json:"to_status,omitempty"`
	Actor      string            `json:"actor,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Material is a downloadable file in the materials portal. It is visible
// when Published is set or PublishAt has elapsed.
type Material struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StoragePath string     `json:"storage_path"`
	Published   bool       `json:"published"`
	PublishAt   *time.Time `json:"publish_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DownloadEvent records a single gated download.
type DownloadEvent struct {
	ID         string    `json:"id"`
	MaterialID int64     `json:"material_id"`
	SubjectID  string    `json:"subject_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// AdminAccount is an operator account for the admin area.
type AdminAccount struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Role             string     `json:"role"`
	IsActive         bool       `json:"is_active"`
	FailedLoginCount int        `json:"failed_login_count"`
	LockedUntil      *time.Time `json:"locked_until"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AdminSession maps a hashed bearer secret to an admin account. The raw
// secret only ever lives in the cookie.
type AdminSession struct {
	ID          int64     `json:"id"`
	SessionHash string    `json:"-"`
	CSRFToken   string    `json:"-"`
	AdminID     int64     `json:"admin_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is a blog entry on the marketing site.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	Tags      string    `json:"tags"`
	Category  string    `json:"category"`
	ReadTime  string    `json:"read_time"`
	ImageURL  string    `json:"image_url"`
	VideoURL  string    `json:"video_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
