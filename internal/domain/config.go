package domain

// DefaultTier is the tier key used when no tag or wiki key matches.
const DefaultTier = "default"

// ExtensionTagPrefix disambiguates extension tags from farm, version and
// state tags.
const ExtensionTagPrefix = "ext-"

// Settings maps a setting name to its tiers: "default", a tag, or a dbname.
type Settings map[string]map[string]any

// Set stores value under tier for setting name.
func (s Settings) Set(name, tier string, value any) {
	tiers, ok := s[name]
	if !ok {
		tiers = make(map[string]any)
		s[name] = tiers
	}
	tiers[tier] = value
}

// Tags is the ordered tag sequence for one resolution. Later tags override
// earlier ones.
type Tags []string

// ConfigSnapshot is the materialized configuration of one wiki together with
// the extension list it was computed with. Mtime is the source fingerprint.
type ConfigSnapshot struct {
	Mtime      int64          `json:"mtime"`
	Globals    map[string]any `json:"globals"`
	Extensions []string       `json:"extensions"`
}

// ExtensionDecl declares an optional extension that wikis may enable. Key is
// what override documents list; Name is the display name tags and manifests
// use.
type ExtensionDecl struct {
	Key  string `yaml:"-"`
	Name string `yaml:"name"`
}
