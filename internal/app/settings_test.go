package app_test

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/neomorfeo/farmconf/internal/app"
	"github.com/neomorfeo/farmconf/internal/domain"
)

func decodeDoc(t *testing.T, raw string) *domain.OverrideDocument {
	t.Helper()
	var doc domain.OverrideDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decoding override document: %v", err)
	}
	return &doc
}

func TestMaterialize_Precedence(t *testing.T) {
	settings := domain.Settings{
		"wgLogo": {"default": "A", "tagX": "B"},
	}

	got := app.Materialize(settings, "testwikitide", domain.Tags{"wikitide", "tagX"}, app.SiteParams{})
	if got["wgLogo"] != "B" {
		t.Errorf("with tagX: wgLogo = %v, want B", got["wgLogo"])
	}

	got = app.Materialize(settings, "testwikitide", domain.Tags{"wikitide"}, app.SiteParams{})
	if got["wgLogo"] != "A" {
		t.Errorf("without tagX: wgLogo = %v, want A", got["wgLogo"])
	}
}

func TestMaterialize_WikiTierAndLastTagWin(t *testing.T) {
	settings := domain.Settings{
		"wgA": {"default": 1, "wikitide": 2, "private": 3},
		"wgB": {"default": 1, "testwikitide": 9, "private": 3},
		"wgC": {"private": 3},
		"wgD": {"otherwikitide": 1},
	}
	tags := domain.Tags{"wikitide", "1.40", "private"}

	got := app.Materialize(settings, "testwikitide", tags, app.SiteParams{})
	if got["wgA"] != 3 {
		t.Errorf("wgA = %v, want 3 (last matching tag)", got["wgA"])
	}
	if got["wgB"] != 9 {
		t.Errorf("wgB = %v, want 9 (wiki tier)", got["wgB"])
	}
	if got["wgC"] != 3 {
		t.Errorf("wgC = %v, want 3", got["wgC"])
	}
	if _, ok := got["wgD"]; ok {
		t.Error("wgD has no applicable tier and must be omitted")
	}
}

func TestMaterialize_Substitution(t *testing.T) {
	settings := domain.Settings{
		"wgUploadPath": {"default": "/$site/$lang/images"},
		"wgNested":     {"default": map[string]any{"db": "$wiki", "list": []any{"$lang", 7}}},
	}
	params := app.SiteParams{Lang: "test", Site: "wikitide", Wiki: "testwikitide"}

	got := app.Materialize(settings, "testwikitide", nil, params)
	if got["wgUploadPath"] != "/wikitide/test/images" {
		t.Errorf("wgUploadPath = %v", got["wgUploadPath"])
	}
	want := map[string]any{"db": "testwikitide", "list": []any{"test", 7}}
	if !reflect.DeepEqual(got["wgNested"], want) {
		t.Errorf("wgNested = %v, want %v", got["wgNested"], want)
	}
	// The source settings are not modified.
	if settings["wgUploadPath"]["default"] != "/$site/$lang/images" {
		t.Error("Materialize modified its input")
	}
}

func TestBuildSettings_OverrideReplacesBase(t *testing.T) {
	base := domain.Settings{
		"wgLogo":      {"default": "base.png", "private": "private.png"},
		"wgUntouched": {"default": true},
	}
	doc := decodeDoc(t, `{"settings": {"wgLogo": "mine.png"}}`)

	got := app.BuildSettings(base, doc)
	if !reflect.DeepEqual(got["wgLogo"], map[string]any{"default": "mine.png"}) {
		t.Errorf("wgLogo tiers = %v", got["wgLogo"])
	}
	if !reflect.DeepEqual(got["wgUntouched"], map[string]any{"default": true}) {
		t.Errorf("wgUntouched tiers = %v", got["wgUntouched"])
	}
	if base["wgLogo"]["private"] != "private.png" {
		t.Error("BuildSettings modified base")
	}

	m := app.Materialize(got, "testwikitide", domain.Tags{"private"}, app.SiteParams{})
	if m["wgLogo"] != "mine.png" {
		t.Errorf("override lost to a tag tier: wgLogo = %v", m["wgLogo"])
	}
}

func TestBuildSettings_CoreAndStates(t *testing.T) {
	doc := decodeDoc(t, `{
		"core": {"wgLanguageCode": "de"},
		"states": {"private": 1, "closed": false, "locked": "1", "inactive": "exempt", "experimental": true}
	}`)

	m := app.Materialize(app.BuildSettings(nil, doc), "testwikitide", nil, app.SiteParams{})
	want := map[string]any{
		"wgLanguageCode": "de",
		"cwPrivate":      true,
		"cwClosed":       false,
		"cwLocked":       true,
		"cwInactive":     "exempt",
		"cwExperimental": true,
	}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("settings = %v, want %v", m, want)
	}
}

func TestBuildSettings_Namespaces(t *testing.T) {
	doc := decodeDoc(t, `{"namespaces": {
		"Project_talk2": {"id": 3001, "searchable": 0, "subpages": 1, "contentmodel": "wikitext", "content": 0, "protection": "", "aliases": []},
		"Project2": {"id": 3000, "searchable": 1, "subpages": 0, "contentmodel": "wikitext", "content": 1, "protection": "editinterface", "aliases": ["P2", "Proj2"]}
	}}`)

	m := app.Materialize(app.BuildSettings(nil, doc), "testwikitide", nil, app.SiteParams{})

	checks := map[string]any{
		"wgExtraNamespaces":               map[string]any{"3000": "Project2", "3001": "Project_talk2"},
		"wgNamespacesToBeSearchedDefault": map[string]any{"3000": true, "3001": false},
		"wgNamespacesWithSubpages":        map[string]any{"3000": false, "3001": true},
		"wgNamespaceContentModels":        map[string]any{"3000": "wikitext", "3001": "wikitext"},
		"wgContentNamespaces":             []int{3000},
		"wgNamespaceProtection":           map[string]any{"3000": []string{"editinterface"}},
		"wgNamespaceAliases":              map[string]any{"P2": 3000, "Proj2": 3000},
	}
	for name, want := range checks {
		if !reflect.DeepEqual(m[name], want) {
			t.Errorf("%s = %#v, want %#v", name, m[name], want)
		}
	}
}

func TestBuildSettings_NumericNamespaceKey(t *testing.T) {
	doc := decodeDoc(t, `{"namespaces": {"3000": {"name": "Project2", "id": 0, "aliases": ["P2"]}}}`)

	m := app.Materialize(app.BuildSettings(nil, doc), "testwikitide", nil, app.SiteParams{})
	if !reflect.DeepEqual(m["wgExtraNamespaces"], map[string]any{"3000": "Project2"}) {
		t.Errorf("wgExtraNamespaces = %v", m["wgExtraNamespaces"])
	}
	if !reflect.DeepEqual(m["wgNamespaceAliases"], map[string]any{"P2": 3000}) {
		t.Errorf("wgNamespaceAliases = %v", m["wgNamespaceAliases"])
	}
}

func TestBuildSettings_IDKeyedNamespaces(t *testing.T) {
	doc := decodeDoc(t, `{"namespaces": {
		"3000": {"searchable": 1, "subpages": 0, "contentmodel": "wikitext", "content": 1, "protection": "", "aliases": ["P2"]},
		"3002": {"searchable": 0, "subpages": 1, "contentmodel": "wikitext", "content": 1, "protection": "sysop", "aliases": ["P4"]}
	}}`)

	m := app.Materialize(app.BuildSettings(nil, doc), "testwikitide", nil, app.SiteParams{})

	checks := map[string]any{
		"wgExtraNamespaces":               map[string]any{"3000": "3000", "3002": "3002"},
		"wgNamespacesToBeSearchedDefault": map[string]any{"3000": true, "3002": false},
		"wgNamespacesWithSubpages":        map[string]any{"3000": false, "3002": true},
		"wgContentNamespaces":             []int{3000, 3002},
		"wgNamespaceProtection":           map[string]any{"3002": []string{"sysop"}},
		"wgNamespaceAliases":              map[string]any{"P2": 3000, "P4": 3002},
	}
	for name, want := range checks {
		if !reflect.DeepEqual(m[name], want) {
			t.Errorf("%s = %#v, want %#v", name, m[name], want)
		}
	}
}

func TestBuildSettings_ExplicitZeroNamespaceID(t *testing.T) {
	doc := decodeDoc(t, `{"namespaces": {"Main2": {"id": 0, "aliases": ["M"]}}}`)

	m := app.Materialize(app.BuildSettings(nil, doc), "testwikitide", nil, app.SiteParams{})
	if !reflect.DeepEqual(m["wgNamespaceAliases"], map[string]any{"M": 0}) {
		t.Errorf("wgNamespaceAliases = %v", m["wgNamespaceAliases"])
	}
}

func TestBuildSettings_Permissions(t *testing.T) {
	doc := decodeDoc(t, `{"permissions": {
		"sysop": {"permissions": ["block", "delete"], "addgroups": ["bot"], "removegroups": ["bot"], "addself": [], "removeself": ["sysop"], "autopromote": null},
		"autoconfirmed": {"permissions": ["edit"], "addgroups": [], "removegroups": [], "addself": [], "removeself": [], "autopromote": ["&", ["editcount", 10]]},
		"trusted": {"permissions": [], "addgroups": [], "removegroups": [], "addself": [], "removeself": [], "autopromote": ["once", "editcount>10"]}
	}}`)

	m := app.Materialize(app.BuildSettings(nil, doc), "testwikitide", nil, app.SiteParams{})

	rights := map[string]any{
		"sysop":         map[string]any{"block": true, "delete": true},
		"autoconfirmed": map[string]any{"edit": true},
	}
	if !reflect.DeepEqual(m["wgGroupPermissions"], rights) {
		t.Errorf("wgGroupPermissions = %v", m["wgGroupPermissions"])
	}
	if !reflect.DeepEqual(m["wgAddGroups"], map[string]any{"sysop": []string{"bot"}}) {
		t.Errorf("wgAddGroups = %v", m["wgAddGroups"])
	}
	if !reflect.DeepEqual(m["wgGroupsRemoveFromSelf"], map[string]any{"sysop": []string{"sysop"}}) {
		t.Errorf("wgGroupsRemoveFromSelf = %v", m["wgGroupsRemoveFromSelf"])
	}
	if _, ok := m["wgGroupsAddToSelf"]; ok {
		t.Error("wgGroupsAddToSelf should be absent when no group adds itself")
	}

	once, _ := m["wgAutopromoteOnce"].(map[string]any)
	if !reflect.DeepEqual(once["trusted"], []any{"editcount>10"}) {
		t.Errorf("wgAutopromoteOnce[trusted] = %v, want [editcount>10]", once["trusted"])
	}
	promote, _ := m["wgAutopromote"].(map[string]any)
	if _, ok := promote["trusted"]; ok {
		t.Error("a once criterion must not populate wgAutopromote")
	}
	if _, ok := promote["sysop"]; ok {
		t.Error("null autopromote must not produce a setting")
	}
	if !reflect.DeepEqual(promote["autoconfirmed"], []any{"&", []any{"editcount", float64(10)}}) {
		t.Errorf("wgAutopromote[autoconfirmed] = %v", promote["autoconfirmed"])
	}
}

func TestBuildSettings_Deterministic(t *testing.T) {
	raw := `{
		"core": {"wgLanguageCode": "en"},
		"settings": {"wgA": 1, "wgB": [1, 2], "wgC": {"x": "y"}},
		"namespaces": {"N1": {"id": 3000, "content": 1}, "N2": {"id": 3002, "content": 1}, "N3": {"id": 3004, "content": 1}},
		"permissions": {"a": {"permissions": ["x"], "addgroups": ["b", "c"]}, "b": {"permissions": ["y"]}}
	}`

	encode := func() []byte {
		m := app.Materialize(app.BuildSettings(nil, decodeDoc(t, raw)), "testwikitide", nil, app.SiteParams{})
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return data
	}

	first := encode()
	for range 20 {
		if again := encode(); !bytes.Equal(first, again) {
			t.Fatalf("output differs between runs:\n%s\n%s", first, again)
		}
	}
}
