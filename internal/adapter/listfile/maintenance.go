package listfile

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// MaintenanceFilter decides whether a list entry must be hidden because its
// database cluster is under maintenance. It only answers the question; the
// caller owns the maintenance response.
type MaintenanceFilter struct {
	// Clusters under maintenance. Nil or empty disables the filter.
	Clusters mapset.Set[string]
	// Current is the dbname of the wiki being served.
	Current string
	// CLI requests are never filtered so maintenance tooling keeps access.
	CLI bool
}

// Excludes reports whether dbname must be dropped from a non-CLI read.
func (f MaintenanceFilter) Excludes(dbname string, entry domain.ListEntry) bool {
	if f.CLI || f.Current == "" || f.Clusters == nil || f.Clusters.Cardinality() == 0 {
		return false
	}
	return dbname == f.Current && f.Clusters.Contains(entry.Cluster)
}

// Apply returns entries without the excluded ones. The input is not modified.
func (f MaintenanceFilter) Apply(entries map[string]domain.ListEntry) map[string]domain.ListEntry {
	out := make(map[string]domain.ListEntry, len(entries))
	for dbname, e := range entries {
		if !f.Excludes(dbname, e) {
			out[dbname] = e
		}
	}
	return out
}
