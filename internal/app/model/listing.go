package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PromotionPlan is the paid placement tier of a listing.
type PromotionPlan string

const (
	PlanBase PromotionPlan = "base"
	PlanMid  PromotionPlan = "mid"
	PlanTop  PromotionPlan = "top"
)

// Priority values derived from the plan. Top outranks mid outranks base;
// an unpromoted listing sits at 0.
const (
	PriorityBase = 100
	PriorityMid  = 200
	PriorityTop  = 300
)

// ValidPlan reports whether s names a known promotion plan.
func ValidPlan(s string) bool {
	switch PromotionPlan(s) {
	case PlanBase, PlanMid, PlanTop:
		return true
	}
	return false
}

// PriorityForPlan maps a plan to its sort priority.
func PriorityForPlan(plan PromotionPlan) int {
	switch plan {
	case PlanTop:
		return PriorityTop
	case PlanMid:
		return PriorityMid
	default:
		return PriorityBase
	}
}

type Listing struct {
	ID      uint  `gorm:"primarykey" json:"id"`
	OwnerID *uint `gorm:"index" json:"owner_id"` // nullable - unclaimed until set
	Owner   *User `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"owner,omitempty"`

	Name     string `gorm:"not null;index" json:"name"`
	Category string `gorm:"index" json:"category"`

	// Location is the human-readable locality string, e.g. "Brownsburg, IN".
	// The structured fields below are used for maps links and search.
	Location string `gorm:"index" json:"location"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `gorm:"type:varchar(20)" json:"zip_code"`

	Phone    string `gorm:"type:varchar(50)" json:"phone"`
	Website  string `json:"website"`
	ImageURL string `json:"image_url"`

	// ExternalID is the stable id of an imported record ("osm:node_123").
	// Unique so the same external place is never imported twice.
	ExternalID *string `gorm:"uniqueIndex" json:"external_id,omitempty"`
	IsCurated  bool    `gorm:"default:false;index" json:"is_curated"` // manually entered vs auto-imported

	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`

	// Opening hours as "HH:MM". Empty means unset, which evaluates as
	// permanently closed.
	OpenTime  string `gorm:"type:varchar(10)" json:"open_time"`
	CloseTime string `gorm:"type:varchar(10)" json:"close_time"`

	IsOnHoliday  bool       `gorm:"default:false" json:"is_on_holiday"`
	HolidayNote  *string    `gorm:"type:varchar(120)" json:"holiday_note,omitempty"`
	HolidayUntil *time.Time `json:"holiday_until,omitempty"`

	Plan          PromotionPlan `gorm:"type:varchar(20);default:'base'" json:"plan"`
	IsActive      bool          `gorm:"default:false;index:idx_listings_active_priority" json:"is_active"`
	FeaturedFrom  *time.Time    `json:"featured_from,omitempty"`
	FeaturedUntil *time.Time    `json:"featured_until,omitempty"`
	Priority      int           `gorm:"default:0;index:idx_listings_active_priority" json:"priority"`

	StripeSessionID      string `json:"-"`
	StripeCustomerID     string `json:"-"`
	StripeSubscriptionID string `gorm:"index" json:"-"`
	LastPaidAmount       int64  `json:"-"` // cents

	ViewCount        uint `gorm:"default:0" json:"view_count"`
	CallClicks       uint `gorm:"default:0" json:"call_clicks"`
	WebsiteClicks    uint `gorm:"default:0" json:"website_clicks"`
	DirectionsClicks uint `gorm:"default:0" json:"directions_clicks"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Listing) TableName() string {
	return "listings"
}

// SetPriorityByPlan recomputes the sort priority from the current plan.
func (l *Listing) SetPriorityByPlan() {
	l.Priority = PriorityForPlan(l.Plan)
}

// FullAddress joins the structured address parts for display and maps links.
func (l *Listing) FullAddress() string {
	parts := []string{l.Address, l.City, l.State, l.ZipCode}
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, ", ")
}

// WebsiteDomain returns the listing's website host without a leading "www.",
// or "" when no usable domain can be derived.
func (l *Listing) WebsiteDomain() string {
	if l.Website == "" {
		return ""
	}
	u, err := url.Parse(l.Website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		// tolerate bare "example.com" without a scheme
		host = strings.ToLower(strings.Split(u.Path, "/")[0])
	}
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

// IsPromotedNow reports whether the listing is inside an active promotion
// window at the given instant. It does not mutate state; see
// EvaluatePromotion for the reconciling variant.
func (l *Listing) IsPromotedNow(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.FeaturedFrom != nil && now.Before(*l.FeaturedFrom) {
		return false
	}
	if l.FeaturedUntil != nil && now.After(*l.FeaturedUntil) {
		return false
	}
	return true
}

// EvaluatePromotion checks the promotion window and deactivates an elapsed
// one in-struct. It returns the current truth plus whether the caller has a
// pending write to persist (is_active, priority).
func (l *Listing) EvaluatePromotion(now time.Time) (promoted bool, dirty bool) {
	if l.IsActive && l.FeaturedUntil != nil && l.FeaturedUntil.Before(now) {
		l.IsActive = false
		l.Priority = 0
		return false, true
	}
	return l.IsPromotedNow(now), false
}

// EvaluateAvailability reports whether the listing is open at the given
// instant. An elapsed holiday override is cleared in-struct and evaluation
// proceeds to normal hours on the same call; dirty tells the caller to
// persist the cleared holiday fields.
func (l *Listing) EvaluateAvailability(now time.Time) (open bool, dirty bool) {
	if l.IsOnHoliday && l.HolidayUntil != nil && !l.HolidayUntil.After(now) {
		l.IsOnHoliday = false
		l.HolidayUntil = nil
		l.HolidayNote = nil
		dirty = true
	}

	if l.IsOnHoliday {
		return false, dirty
	}

	open = isOpenAt(l.OpenTime, l.CloseTime, now)
	return open, dirty
}

// isOpenAt evaluates "HH:MM" opening hours against the time of day of now.
// A same-day interval (open <= close) is inclusive on both ends; an
// overnight interval (open > close, e.g. 20:00-02:00) is the union of
// [open, midnight) and [midnight, close]. Missing either bound means closed.
func isOpenAt(openTime, closeTime string, now time.Time) bool {
	open, okOpen := parseClock(openTime)
	close, okClose := parseClock(closeTime)
	if !okOpen || !okClose {
		return false
	}

	minute := now.Hour()*60 + now.Minute()

	if open <= close {
		return open <= minute && minute <= close
	}
	return minute >= open || minute <= close
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	min, err := strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, false
	}
	return hour*60 + min, true
}
