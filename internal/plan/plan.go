// Package plan defines the pricing tiers and the per-tier limits that
// the usage guard enforces.
//
// Limit semantics: a nil pointer means "no limit"; an explicit zero means
// "feature fully disabled". Every comparison must keep the two apart.
package plan

// Plan identifies a pricing tier.
type Plan string

const (
	Free     Plan = "free"
	Pro      Plan = "pro"
	Business Plan = "business"
)

// Limits stores the quota and feature configuration for one tier.
// Pointer fields: nil = unbounded, 0 = disabled.
type Limits struct {
	DailyGenerations       *int `json:"dailyGenerations,omitempty"`
	MaxPlatformsPerRequest *int `json:"maxPlatformsPerRequest,omitempty"`
	MaxBlogLength          *int `json:"maxBlogLength,omitempty"`
	VariationsPerRequest   *int `json:"variationsPerRequest,omitempty"`
	HistoryLimit           *int `json:"historyLimit,omitempty"`

	BrandVoiceEnabled bool `json:"brandVoiceEnabled"`
	BlogToSNSEnabled  bool `json:"blogToSnsEnabled"`
	PriorityRouting   bool `json:"priorityRouting"`
}

// Catalogue is the hardcoded plan catalogue.
var Catalogue = map[Plan]Limits{
	Free: {
		DailyGenerations:       IntPtr(5),
		MaxPlatformsPerRequest: IntPtr(1),
		MaxBlogLength:          IntPtr(0), // blog mode blocked entirely
		VariationsPerRequest:   IntPtr(1),
		HistoryLimit:           IntPtr(10),
		BrandVoiceEnabled:      false,
		BlogToSNSEnabled:       false,
		PriorityRouting:        false,
	},
	Pro: {
		DailyGenerations:       IntPtr(50),
		MaxPlatformsPerRequest: IntPtr(5),
		MaxBlogLength:          IntPtr(10000),
		VariationsPerRequest:   IntPtr(3),
		HistoryLimit:           IntPtr(100),
		BrandVoiceEnabled:      true,
		BlogToSNSEnabled:       true,
		PriorityRouting:        false,
	},
	Business: {
		DailyGenerations:       nil, // unbounded
		MaxPlatformsPerRequest: IntPtr(5),
		MaxBlogLength:          nil,
		VariationsPerRequest:   IntPtr(10),
		HistoryLimit:           nil,
		BrandVoiceEnabled:      true,
		BlogToSNSEnabled:       true,
		PriorityRouting:        true,
	},
}

// LimitsFor returns the limits for a plan, defaulting unknown plans to free.
func LimitsFor(p Plan) Limits {
	l, ok := Catalogue[p]
	if !ok {
		return Catalogue[Free]
	}
	return l
}

// Valid returns true if the plan name is recognised.
func Valid(p Plan) bool {
	_, ok := Catalogue[p]
	return ok
}

// Merge overlays a per-user override onto base limits, field by field.
// A set pointer in the override replaces the base value (including an
// explicit zero); unset pointers fall through to the base. Feature flags
// in the override always win.
func Merge(base Limits, override *Limits) Limits {
	if override == nil {
		return base
	}
	out := base
	if override.DailyGenerations != nil {
		out.DailyGenerations = override.DailyGenerations
	}
	if override.MaxPlatformsPerRequest != nil {
		out.MaxPlatformsPerRequest = override.MaxPlatformsPerRequest
	}
	if override.MaxBlogLength != nil {
		out.MaxBlogLength = override.MaxBlogLength
	}
	if override.VariationsPerRequest != nil {
		out.VariationsPerRequest = override.VariationsPerRequest
	}
	if override.HistoryLimit != nil {
		out.HistoryLimit = override.HistoryLimit
	}
	out.BrandVoiceEnabled = base.BrandVoiceEnabled || override.BrandVoiceEnabled
	out.BlogToSNSEnabled = base.BlogToSNSEnabled || override.BlogToSNSEnabled
	out.PriorityRouting = base.PriorityRouting || override.PriorityRouting
	return out
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Bounded reports whether a limit field carries an actual bound.
func Bounded(limit *int) bool { return limit != nil }
