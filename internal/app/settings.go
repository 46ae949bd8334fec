package app

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// State settings produced from an override document's states bag, keyed by
// the state name they read.
var stateSettings = []struct {
	state   string
	setting string
}{
	{"private", "cwPrivate"},
	{"closed", "cwClosed"},
	{"locked", "cwLocked"},
	{"inactive", "cwInactive"},
	{"experimental", "cwExperimental"},
}

// onceMarker routes autopromote criteria to wgAutopromoteOnce.
const onceMarker = "once"

// BuildSettings folds an override document into a copy of base. Every setting
// the document produces replaces the base entry of the same name with a
// single default tier, so per-wiki overrides win over every farm, version or
// tag tier of the base. A nil doc returns a copy of base.
func BuildSettings(base domain.Settings, doc *domain.OverrideDocument) domain.Settings {
	out := make(domain.Settings, len(base))
	for name, tiers := range base {
		out[name] = maps.Clone(tiers)
	}
	if doc == nil {
		return out
	}

	overrides := make(map[string]any)
	mergeCore(overrides, doc)
	mergeStates(overrides, doc)
	maps.Copy(overrides, doc.Settings)
	mergeNamespaces(overrides, doc)
	mergePermissions(overrides, doc)

	for name, value := range overrides {
		out[name] = map[string]any{domain.DefaultTier: value}
	}
	return out
}

func mergeCore(out map[string]any, doc *domain.OverrideDocument) {
	if lang, ok := doc.Core["wgLanguageCode"]; ok {
		out["wgLanguageCode"] = lang
	}
}

func mergeStates(out map[string]any, doc *domain.OverrideDocument) {
	for _, s := range stateSettings {
		v := doc.States[s.state]
		if s.state == "inactive" {
			out[s.setting] = v.Setting()
			continue
		}
		out[s.setting] = v.On
	}
}

func mergeNamespaces(out map[string]any, doc *domain.OverrideDocument) {
	if len(doc.Namespaces) == 0 {
		return
	}

	extra := make(map[string]any)
	searchable := make(map[string]any)
	subpages := make(map[string]any)
	models := make(map[string]any)
	protection := make(map[string]any)
	aliases := make(map[string]any)
	var content []int

	for _, key := range slices.Sorted(maps.Keys(doc.Namespaces)) {
		ns := doc.Namespaces[key]
		id, name := namespaceIdentity(key, ns)
		sid := strconv.Itoa(id)

		extra[sid] = name
		searchable[sid] = bool(ns.Searchable)
		subpages[sid] = bool(ns.Subpages)
		models[sid] = ns.ContentModel
		if ns.Content {
			content = append(content, id)
		}
		if ns.Protection != "" {
			protection[sid] = []string{ns.Protection}
		}
		for _, alias := range ns.Aliases {
			aliases[alias] = id
		}
	}
	slices.Sort(content)

	out["wgExtraNamespaces"] = extra
	out["wgNamespacesToBeSearchedDefault"] = searchable
	out["wgNamespacesWithSubpages"] = subpages
	out["wgNamespaceContentModels"] = models
	if content != nil {
		out["wgContentNamespaces"] = content
	}
	if len(protection) > 0 {
		out["wgNamespaceProtection"] = protection
	}
	if len(aliases) > 0 {
		out["wgNamespaceAliases"] = aliases
	}
}

// namespaceIdentity returns the id and canonical name of a namespace entry.
// A numeric key is the id unless the entry carries its own id and no name.
// A numeric-keyed entry without a name is named by its key.
func namespaceIdentity(key string, ns domain.Namespace) (int, string) {
	if id, err := strconv.Atoi(key); err == nil && (ns.ID == nil || ns.Name != "") {
		if ns.Name != "" {
			return id, ns.Name
		}
		return id, key
	}
	if ns.ID == nil {
		return 0, key
	}
	return *ns.ID, key
}

func mergePermissions(out map[string]any, doc *domain.OverrideDocument) {
	if len(doc.Permissions) == 0 {
		return
	}

	rights := make(map[string]any)
	groupLists := map[string]map[string]any{
		"wgAddGroups":            {},
		"wgRemoveGroups":         {},
		"wgGroupsAddToSelf":      {},
		"wgGroupsRemoveFromSelf": {},
	}
	promote := make(map[string]any)
	promoteOnce := make(map[string]any)

	for _, group := range slices.Sorted(maps.Keys(doc.Permissions)) {
		p := doc.Permissions[group]

		if len(p.Permissions) > 0 {
			granted := make(map[string]any, len(p.Permissions))
			for _, right := range p.Permissions {
				granted[right] = true
			}
			rights[group] = granted
		}

		addList(groupLists["wgAddGroups"], group, p.AddGroups)
		addList(groupLists["wgRemoveGroups"], group, p.RemoveGroups)
		addList(groupLists["wgGroupsAddToSelf"], group, p.AddSelf)
		addList(groupLists["wgGroupsRemoveFromSelf"], group, p.RemoveSelf)

		if p.Autopromote == nil {
			continue
		}
		criteria, once := stripOnce(p.Autopromote)
		if once {
			promoteOnce[group] = criteria
		} else {
			promote[group] = criteria
		}
	}

	if len(rights) > 0 {
		out["wgGroupPermissions"] = rights
	}
	for name, lists := range groupLists {
		if len(lists) > 0 {
			out[name] = lists
		}
	}
	if len(promote) > 0 {
		out["wgAutopromote"] = promote
	}
	if len(promoteOnce) > 0 {
		out["wgAutopromoteOnce"] = promoteOnce
	}
}

func addList(dst map[string]any, group string, names []string) {
	if len(names) > 0 {
		dst[group] = slices.Clone(names)
	}
}

// stripOnce removes the first once marker from criteria.
func stripOnce(criteria []any) ([]any, bool) {
	out := make([]any, 0, len(criteria))
	found := false
	for _, c := range criteria {
		if s, ok := c.(string); ok && s == onceMarker && !found {
			found = true
			continue
		}
		out = append(out, c)
	}
	return out, found
}

// SiteParams are the substitutions applied to string setting values.
type SiteParams struct {
	Lang string
	Site string
	Wiki string
}

func (p SiteParams) replacer() *strings.Replacer {
	return strings.NewReplacer("$lang", p.Lang, "$site", p.Site, "$wiki", p.Wiki)
}

// Materialize picks one value per setting for dbname: its own tier, else the
// last tag in tags that has a tier, else the default tier. Settings with none
// of these are omitted.
func Materialize(settings domain.Settings, dbname string, tags domain.Tags, params SiteParams) map[string]any {
	r := params.replacer()
	out := make(map[string]any, len(settings))
	for name, tiers := range settings {
		if v, ok := pickTier(tiers, dbname, tags); ok {
			out[name] = substitute(v, r)
		}
	}
	return out
}

func pickTier(tiers map[string]any, dbname string, tags domain.Tags) (any, bool) {
	if v, ok := tiers[dbname]; ok {
		return v, true
	}
	for _, tag := range slices.Backward(tags) {
		if v, ok := tiers[tag]; ok {
			return v, true
		}
	}
	v, ok := tiers[domain.DefaultTier]
	return v, ok
}

// substitute returns v with parameters replaced in every string it holds.
func substitute(v any, r *strings.Replacer) any {
	switch t := v.(type) {
	case string:
		return r.Replace(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = substitute(e, r)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = substitute(e, r)
		}
		return out
	default:
		return v
	}
}
