package domain

import (
	"encoding/json"
	"strconv"
)

// ExemptMarker is the state value meaning "configured off for tagging".
const ExemptMarker = "exempt"

// OverrideDocument is the per-wiki settings payload written by the settings
// editor. This package only reads it.
type OverrideDocument struct {
	Core        map[string]any        `json:"core"`
	States      map[string]StateValue `json:"states"`
	Settings    map[string]any        `json:"settings"`
	Namespaces  map[string]Namespace  `json:"namespaces"`
	Permissions map[string]Permission `json:"permissions"`
	Extensions  []string              `json:"extensions"`
}

// Namespace is one custom namespace. Documents key it either by canonical
// name with the numeric id inside, or by numeric id. A nil ID means the
// document carried no id field.
type Namespace struct {
	ID           *int     `json:"id"`
	Name         string   `json:"name,omitempty"`
	Searchable   Flag     `json:"searchable"`
	Subpages     Flag     `json:"subpages"`
	ContentModel string   `json:"contentmodel"`
	Content      Flag     `json:"content"`
	Protection   string   `json:"protection"`
	Aliases      []string `json:"aliases"`
}

// Permission is the grant set for one user group. A nil Autopromote means
// the document held null and no promotion setting is produced.
type Permission struct {
	Permissions  []string `json:"permissions"`
	AddGroups    []string `json:"addgroups"`
	RemoveGroups []string `json:"removegroups"`
	AddSelf      []string `json:"addself"`
	RemoveSelf   []string `json:"removeself"`
	Autopromote  []any    `json:"autopromote"`
}

// Flag is a boolean that also accepts 0/1 and "0"/"1" encodings.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	v, err := decodeLoose(data)
	if err != nil {
		return err
	}
	*f = Flag(truthy(v))
	return nil
}

// StateValue is a lifecycle flag that may additionally be marked exempt.
type StateValue struct {
	On     bool
	Exempt bool
}

// Tagged reports whether the state contributes a tag.
func (s StateValue) Tagged() bool {
	return s.On && !s.Exempt
}

// Setting renders the state as a setting value, preserving the exempt marker.
func (s StateValue) Setting() any {
	if s.Exempt {
		return ExemptMarker
	}
	return s.On
}

func (s *StateValue) UnmarshalJSON(data []byte) error {
	v, err := decodeLoose(data)
	if err != nil {
		return err
	}
	if str, ok := v.(string); ok && str == ExemptMarker {
		*s = StateValue{On: true, Exempt: true}
		return nil
	}
	*s = StateValue{On: truthy(v)}
	return nil
}

func (s StateValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Setting())
}

func decodeLoose(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// truthy follows the registry's loose boolean encoding.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		if t == "" {
			return false
		}
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return n != 0
		}
		return true
	default:
		return true
	}
}
