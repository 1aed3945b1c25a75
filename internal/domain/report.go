package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Hardware is the physical Steam Deck variant a report pertains to.
type Hardware string

const (
	HardwareLCD  Hardware = "lcd"
	HardwareOLED Hardware = "oled"
)

// Rating is the page-level Steam Deck compatibility tier mined from ProtonDB.
type Rating string

const (
	RatingPlatinum    Rating = "platinum"
	RatingGold        Rating = "gold"
	RatingNative      Rating = "native"
	RatingUnsupported Rating = "unsupported"
	RatingBorked      Rating = "borked"
)

var ratingLabels = map[string]Rating{
	"platinum":    RatingPlatinum,
	"gold":        RatingGold,
	"native":      RatingNative,
	"unsupported": RatingUnsupported,
	"borked":      RatingBorked,
}

// ParseRating maps a page label to a rating, case-insensitively. Unrecognized
// labels yield the empty rating, never an error.
func ParseRating(label string) Rating {
	return ratingLabels[normalizeLabel(label)]
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Reporter identifies who submitted a report. AvatarURL may be empty.
type Reporter struct {
	Username   string `json:"username"`
	ProfileURL string `json:"user_profile_url"`
	AvatarURL  string `json:"user_profile_avatar_url,omitempty"`
}

// SteamDeckSettings are device-level settings mined from a report. Values are
// already cleaned per the source's rules; empty string means "not reported".
type SteamDeckSettings struct {
	FrameRateCap      string `json:"frame_rate_cap,omitempty"`
	ScreenRefreshRate string `json:"screen_refresh_rate,omitempty"`
	ProtonVersion     string `json:"proton_version,omitempty"`
	SteamOSVersion    string `json:"steamos_version,omitempty"`
	TDPLimit          string `json:"tdp_limit,omitempty"`
	ScalingFilter     string `json:"scaling_filter,omitempty"`
	GPUClockSpeed     string `json:"gpu_clock_speed,omitempty"`
}

// BatteryPerformance carries free-form battery metrics as reported upstream.
type BatteryPerformance struct {
	Consumption string `json:"consumption,omitempty"`
	Temps       string `json:"temps,omitempty"`
	LifeSpan    string `json:"life_span,omitempty"`
}

// Experience carries observed runtime metrics.
type Experience struct {
	AverageFrameRate string `json:"average_frame_rate,omitempty"`
}

// ReportBody is one mined compatibility report before it gains persistence
// identity (game id, hash, timestamps).
type ReportBody struct {
	Title              *string             `json:"title"`
	Source             Source              `json:"source"`
	URL                string              `json:"url"`
	Reporter           Reporter            `json:"reporter"`
	GameSettings       map[string]string   `json:"game_settings,omitempty"`
	Hardware           Hardware            `json:"steamdeck_hardware,omitempty"`
	SteamDeckSettings  *SteamDeckSettings  `json:"steamdeck_settings,omitempty"`
	BatteryPerformance *BatteryPerformance `json:"battery_performance,omitempty"`
	Experience         *Experience         `json:"steamdeck_experience,omitempty"`
	Notes              string              `json:"notes"`
	PostedAt           *time.Time          `json:"posted_at"`
}

// Hash fingerprints the report content for deduplication across overlapping
// job runs. JSON marshalling is deterministic (struct field order, sorted map
// keys), so identical content always hashes identically.
func (b *ReportBody) Hash() string {
	data, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GameReport is the persisted form of a mined report.
type GameReport struct {
	GameID int64 `json:"game_id"`
	ReportBody
	ContentHash string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MinedData is what a miner's polish step returns. Rating and Verified are
// page-level signals only the ProtonDB miner produces.
type MinedData struct {
	Reports  []ReportBody
	Rating   Rating
	Verified *bool
}

// SortReportsByPostedAt orders reports newest first. Reports without a date
// sort after every dated report, keeping their original relative order.
func SortReportsByPostedAt(reports []ReportBody) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i].PostedAt, reports[j].PostedAt
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		default:
			return false
		}
	})
}
