package domain

import (
	"strings"
	"time"
)

// DefaultWiki is the sentinel identity served on a farm's default server.
const DefaultWiki = "default"

// NoSiteName is reported for wikis without a configured site name.
const NoSiteName = "No sitename set."

// Status represents the registry lifecycle state of a wiki.
type Status string

const (
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// Event represents an action that triggers a lifecycle transition.
type Event string

const (
	EventCreate     Event = "create"
	EventClose      Event = "close"
	EventReopen     Event = "reopen"
	EventDeactivate Event = "deactivate"
	EventReactivate Event = "reactivate"
	EventDelete     Event = "delete"
	EventUndelete   Event = "undelete"
)

// Transition defines a valid state change: an event moves a wiki from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the wiki lifecycle.
// This is domain knowledge consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: EventClose, Src: StatusActive, Dst: StatusClosed},
	{Event: EventReopen, Src: StatusClosed, Dst: StatusActive},
	{Event: EventDeactivate, Src: StatusActive, Dst: StatusInactive},
	{Event: EventReactivate, Src: StatusInactive, Dst: StatusActive},
	{Event: EventDelete, Src: StatusActive, Dst: StatusDeleted},
	{Event: EventDelete, Src: StatusClosed, Dst: StatusDeleted},
	{Event: EventDelete, Src: StatusInactive, Dst: StatusDeleted},
	{Event: EventUndelete, Src: StatusDeleted, Dst: StatusActive},
}

// Wiki is a registry row keyed by its database name.
type Wiki struct {
	DBName       string
	SiteName     string
	Cluster      string
	URL          string
	Version      string
	Status       Status
	Locked       bool
	Private      bool
	Experimental bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewWiki creates an active, unlocked, public wiki record.
func NewWiki(dbname, sitename, cluster, version string) Wiki {
	now := time.Now().UTC()
	return Wiki{
		DBName:    dbname,
		SiteName:  sitename,
		Cluster:   cluster,
		Version:   version,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Closed, Inactive and Deleted project Status onto the registry's flag columns.
func (w Wiki) Closed() bool   { return w.Status == StatusClosed }
func (w Wiki) Inactive() bool { return w.Status == StatusInactive }
func (w Wiki) Deleted() bool  { return w.Status == StatusDeleted }

// Farm groups wikis that share a database suffix, a domain and a set of
// code version channels.
type Farm struct {
	Name           string            `mapstructure:"name"`
	Suffix         string            `mapstructure:"suffix"`
	Domain         string            `mapstructure:"domain"`
	DefaultServer  string            `mapstructure:"default_server"`
	GlobalDatabase string            `mapstructure:"global_database"`
	Versions       map[string]string `mapstructure:"versions"`
	DefaultChannel string            `mapstructure:"default_channel"`
	BetaChannel    string            `mapstructure:"beta_channel"`
	BetaHost       string            `mapstructure:"beta_host"`
}

// Owns reports whether dbname carries this farm's database suffix.
func (f Farm) Owns(dbname string) bool {
	return len(dbname) > len(f.Suffix) && strings.HasSuffix(dbname, f.Suffix)
}

// Label strips the farm suffix from dbname, returning the subdomain label.
func (f Farm) Label(dbname string) string {
	return strings.TrimSuffix(dbname, f.Suffix)
}

// DefaultVersion returns the version of the channel new or unpinned wikis run.
// The beta channel is used instead when hostname is the farm's beta host.
func (f Farm) DefaultVersion(hostname string) string {
	if f.BetaHost != "" && hostname == f.BetaHost {
		if v, ok := f.Versions[f.BetaChannel]; ok {
			return v
		}
	}
	return f.Versions[f.DefaultChannel]
}

// HasVersion reports whether version is served by one of the farm's channels.
func (f Farm) HasVersion(version string) bool {
	for _, v := range f.Versions {
		if v == version {
			return true
		}
	}
	return false
}
