package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/farmconf/internal/domain"
)

var _ domain.EventPublisher = (*Publisher)(nil)

// RegenerateArgs asks a worker to rewrite every list file of one farm.
// River serializes this as JSON into its job queue table. Event and Wiki
// record what triggered the job and are only logged.
type RegenerateArgs struct {
	Farm  string `json:"farm"`
	Event string `json:"event,omitempty"`
	Wiki  string `json:"wiki,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (RegenerateArgs) Kind() string { return "lists.regenerate" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// FarmLocator finds the farm a wiki belongs to.
type FarmLocator interface {
	ForWiki(dbname string) (domain.Farm, error)
}

// Publisher implements domain.EventPublisher by enqueuing a list
// regeneration job for the farm of the changed wiki.
type Publisher struct {
	client *Client
	farms  FarmLocator
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client, farms FarmLocator) *Publisher {
	return &Publisher{client: client, farms: farms}
}

// Publish enqueues a regeneration of the farm owning wiki.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, wiki domain.Wiki) error {
	farm, err := p.farms.ForWiki(wiki.DBName)
	if err != nil {
		return err
	}
	_, err = p.client.Insert(ctx, RegenerateArgs{
		Farm:  farm.Name,
		Event: string(event),
		Wiki:  wiki.DBName,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing regeneration of %s: %w", farm.Name, err)
	}
	return nil
}
