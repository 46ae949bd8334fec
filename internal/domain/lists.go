package domain

// ListEntry is one wiki's record inside a list file. Which fields are set
// depends on the list kind: active lists carry only s and c.
type ListEntry struct {
	SiteName string `json:"s"`
	Cluster  string `json:"c"`
	Version  string `json:"v,omitempty"`
	URL      string `json:"u,omitempty"`
}

// ListFile is the on-disk shape of a generated wiki list.
type ListFile struct {
	Combi     map[string]ListEntry `json:"combi,omitempty"`
	Databases map[string]ListEntry `json:"databases,omitempty"`
	Deleted   string               `json:"deleted,omitempty"`
}

// deletedPayloadKey is the only payload key a deleted marker may name.
const deletedPayloadKey = "databases"

// NewCombiList wraps entries in the combi payload key.
func NewCombiList(entries map[string]ListEntry) ListFile {
	return ListFile{Combi: entries}
}

// NewDeletedList wraps entries as a deleted list.
func NewDeletedList(entries map[string]ListEntry) ListFile {
	return ListFile{Deleted: deletedPayloadKey, Databases: entries}
}

// Entries returns the authoritative payload. A deleted marker selects the
// databases key; otherwise combi takes precedence over databases.
func (l ListFile) Entries() map[string]ListEntry {
	if l.Deleted == deletedPayloadKey && l.Databases != nil {
		return l.Databases
	}
	if l.Combi != nil {
		return l.Combi
	}
	if l.Databases != nil {
		return l.Databases
	}
	return map[string]ListEntry{}
}

// Lookup returns the entry for dbname, if present.
func (l ListFile) Lookup(dbname string) (ListEntry, bool) {
	e, ok := l.Entries()[dbname]
	return e, ok
}

// List names, one file per farm and kind.

func ActiveListName(farm string) string    { return "active-" + farm }
func DatabasesListName(farm string) string { return "databases-" + farm }
func DeletedListName(farm string) string   { return "deleted-" + farm }

// VersionListName names the combi list of wikis pinned to a version channel.
func VersionListName(channel, farm string) string {
	return channel + "-wikis-" + farm
}
