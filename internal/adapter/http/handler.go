package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/farmconf/internal/app"
	"github.com/neomorfeo/farmconf/internal/domain"
)

// Services are the application components the API exposes.
type Services struct {
	Directory  *app.Directory
	Snapshots  *app.SnapshotCache
	Extensions *app.Extensions
	Manifests  *app.ManifestIndex
	Wikis      *app.WikiService
	Lists      *app.ListGenerator
	Logger     *slog.Logger
}

// WikiResponse is the API representation of a wiki.
type WikiResponse struct {
	DBName       string   `json:"dbname" doc:"Database name"`
	SiteName     string   `json:"sitename" doc:"Display name"`
	Cluster      string   `json:"cluster" doc:"Database cluster"`
	URL          string   `json:"url,omitempty" doc:"Custom domain URL"`
	Version      string   `json:"version,omitempty" doc:"Pinned code version"`
	Status       string   `json:"status" doc:"Lifecycle state"`
	Locked       bool     `json:"locked" doc:"Editing restricted"`
	Private      bool     `json:"private" doc:"Reading restricted"`
	Experimental bool     `json:"experimental" doc:"Opted into experimental features"`
	Events       []string `json:"events,omitempty" doc:"Lifecycle events accepted in the current state"`
	CreatedAt    string   `json:"created_at,omitempty" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt    string   `json:"updated_at,omitempty" doc:"Last update timestamp (ISO 8601)"`
}

func toWikiResponse(w domain.Wiki) WikiResponse {
	return WikiResponse{
		DBName:       w.DBName,
		SiteName:     w.SiteName,
		Cluster:      w.Cluster,
		URL:          w.URL,
		Version:      w.Version,
		Status:       string(w.Status),
		Locked:       w.Locked,
		Private:      w.Private,
		Experimental: w.Experimental,
		CreatedAt:    timestamp(w.CreatedAt),
		UpdatedAt:    timestamp(w.UpdatedAt),
	}
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func (s Services) registryResponse(w domain.Wiki) WikiResponse {
	resp := toWikiResponse(w)
	for _, e := range s.Wikis.Events(w) {
		resp.Events = append(resp.Events, string(e))
	}
	return resp
}

// --- Create Wiki ---

type CreateWikiInput struct {
	Body struct {
		DBName   string `json:"dbname" minLength:"1" maxLength:"64" pattern:"^[a-z0-9]+$" doc:"Database name, ending in the farm suffix"`
		SiteName string `json:"sitename" minLength:"1" maxLength:"255" doc:"Display name"`
		Cluster  string `json:"cluster" minLength:"1" doc:"Database cluster"`
		Version  string `json:"version,omitempty" doc:"Pinned code version"`
	}
}

type WikiOutput struct {
	Body WikiResponse
}

// --- Get Registry Wiki ---

type RegistryWikiInput struct {
	DBName string `path:"dbname" doc:"Database name"`
}

// --- List Registry Wikis ---

type ListWikisInput struct {
	Status string `query:"status" required:"false" enum:"active,closed,inactive,deleted" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListWikisOutput struct {
	Body []WikiResponse
}

// --- Transition ---

type TransitionInput struct {
	DBName string `path:"dbname" doc:"Database name"`
	Body   struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"close,reopen,deactivate,reactivate,delete,undelete"`
	}
}

// --- Regenerate Lists ---

type RegenerateInput struct {
	Farm string `path:"farm" doc:"Farm name"`
}

// Register adds all API routes to the Huma API.
func Register(api huma.API, s Services) {
	registerConfig(api, s)

	huma.Register(api, huma.Operation{
		OperationID: "create-wiki",
		Method:      http.MethodPost,
		Path:        "/api/v1/registry/wikis",
		Summary:     "Register a new wiki",
		Tags:        []string{"Registry"},
	}, func(ctx context.Context, input *CreateWikiInput) (*WikiOutput, error) {
		b := input.Body
		wiki, err := s.Wikis.Create(ctx, b.DBName, b.SiteName, b.Cluster, b.Version)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		return &WikiOutput{Body: s.registryResponse(wiki)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-registry-wiki",
		Method:      http.MethodGet,
		Path:        "/api/v1/registry/wikis/{dbname}",
		Summary:     "Get a registered wiki",
		Tags:        []string{"Registry"},
	}, func(ctx context.Context, input *RegistryWikiInput) (*WikiOutput, error) {
		wiki, err := s.Wikis.Get(ctx, input.DBName)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		return &WikiOutput{Body: s.registryResponse(wiki)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-registry-wikis",
		Method:      http.MethodGet,
		Path:        "/api/v1/registry/wikis",
		Summary:     "List registered wikis",
		Tags:        []string{"Registry"},
	}, func(ctx context.Context, input *ListWikisInput) (*ListWikisOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			st := domain.Status(input.Status)
			filter.Status = &st
		}

		wikis, err := s.Wikis.List(ctx, filter)
		if err != nil {
			return nil, s.fail(ctx, err)
		}

		resp := make([]WikiResponse, len(wikis))
		for i, w := range wikis {
			resp[i] = s.registryResponse(w)
		}
		return &ListWikisOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-wiki",
		Method:      http.MethodPost,
		Path:        "/api/v1/registry/wikis/{dbname}/events",
		Summary:     "Trigger a lifecycle event",
		Tags:        []string{"Registry"},
	}, func(ctx context.Context, input *TransitionInput) (*WikiOutput, error) {
		wiki, err := s.Wikis.Transition(ctx, input.DBName, domain.Event(input.Body.Event))
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		return &WikiOutput{Body: s.registryResponse(wiki)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "regenerate-lists",
		Method:        http.MethodPost,
		Path:          "/api/v1/farms/{farm}/lists",
		Summary:       "Regenerate a farm's list files from the registry",
		Tags:          []string{"Farms"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *RegenerateInput) (*struct{}, error) {
		if err := s.Lists.Regenerate(ctx, input.Farm); err != nil {
			return nil, s.fail(ctx, err)
		}
		return nil, nil
	})
}

// fail translates err and logs it when it surfaces as a server error.
func (s Services) fail(ctx context.Context, err error) error {
	herr := toHumaError(err)
	var se huma.StatusError
	if errors.As(herr, &se) && se.GetStatus() >= http.StatusInternalServerError && s.Logger != nil {
		s.Logger.ErrorContext(ctx, "request failed", "error", err)
	}
	return herr
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrWikiNotFound) {
		return huma.Error404NotFound(domain.ErrWikiNotFound.Error())
	}
	if errors.Is(err, domain.ErrUnderMaintenance) {
		return huma.Error503ServiceUnavailable(domain.ErrUnderMaintenance.Error())
	}

	if errors.Is(err, domain.ErrUnknownVersion) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var farmErr *domain.UnknownFarmError
	if errors.As(err, &farmErr) {
		return huma.Error404NotFound(farmErr.Error())
	}

	var existsErr *domain.WikiExistsError
	if errors.As(err, &existsErr) {
		return huma.Error409Conflict(existsErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var corrupt *domain.CacheCorruptError
	if errors.As(err, &corrupt) {
		return huma.Error500InternalServerError("config cache failure")
	}

	return huma.Error500InternalServerError("internal server error")
}
