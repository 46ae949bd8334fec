package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/farmconf/internal/app"
)

// --- Resolve ---

type ResolveInput struct {
	Host string `query:"host" required:"true" minLength:"1" doc:"Request host name"`
}

type ResolveResponse struct {
	DBName   string `json:"dbname" doc:"Resolved database name"`
	Farm     string `json:"farm" doc:"Owning farm"`
	URL      string `json:"url" doc:"Canonical server URL"`
	SiteName string `json:"sitename" doc:"Display name"`
	Version  string `json:"version" doc:"Code version the wiki runs"`
}

type ResolveOutput struct {
	Body ResolveResponse
}

// --- Wiki lookups ---

// WikiInput names a wiki. The wiki always resolves at its own version; an
// explicit version is a command-line option only.
type WikiInput struct {
	DBName string `path:"dbname" doc:"Database name"`
}

type ConfigResponse struct {
	Mtime      int64          `json:"mtime" doc:"Source fingerprint the snapshot was computed at"`
	Globals    map[string]any `json:"globals" doc:"Materialized settings"`
	Extensions []string       `json:"extensions" doc:"Active extensions"`
}

type ConfigOutput struct {
	Body ConfigResponse
}

type ExtensionsResponse struct {
	Version    string            `json:"version" doc:"Code version the wiki runs"`
	Extensions []string          `json:"extensions" doc:"Active extensions in declaration order"`
	Manifests  map[string]string `json:"manifests,omitempty" doc:"Extension name to manifest path"`
}

type ExtensionsOutput struct {
	Body ExtensionsResponse
}

// --- Farm lookups ---

type FarmInput struct {
	Farm string `path:"farm" doc:"Farm name"`
}

type ClustersOutput struct {
	Body map[string]string
}

type FarmWikisInput struct {
	Farm    string `path:"farm" doc:"Farm name"`
	Deleted bool   `query:"deleted" required:"false" doc:"Include deleted wikis"`
}

type FarmWikisOutput struct {
	Body []string
}

// wikiRequest starts a resolution for an explicitly named wiki.
func wikiRequest(input *WikiInput) *app.RequestContext {
	return app.NewRequestContext(app.Request{Wiki: input.DBName})
}

func registerConfig(api huma.API, s Services) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-host",
		Method:      http.MethodGet,
		Path:        "/api/v1/resolve",
		Summary:     "Resolve a host name to a wiki",
		Tags:        []string{"Directory"},
	}, func(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
		rc := app.NewRequestContext(app.Request{Host: input.Host})
		dbname, err := s.Directory.Resolve(ctx, rc)
		if err != nil {
			return nil, s.fail(ctx, err)
		}

		resp := ResolveResponse{DBName: dbname}
		farm, err := s.Directory.Farms().ForWiki(dbname)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		resp.Farm = farm.Name
		if resp.URL, err = s.Directory.URL(ctx, rc, dbname); err != nil {
			return nil, s.fail(ctx, err)
		}
		if resp.SiteName, err = s.Directory.SiteName(ctx, rc, dbname); err != nil {
			return nil, s.fail(ctx, err)
		}
		if resp.Version, err = s.Directory.Version(ctx, rc, dbname); err != nil {
			return nil, s.fail(ctx, err)
		}
		return &ResolveOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-wiki",
		Method:      http.MethodGet,
		Path:        "/api/v1/wikis/{dbname}",
		Summary:     "Get a wiki's list record",
		Tags:        []string{"Directory"},
	}, func(ctx context.Context, input *WikiInput) (*WikiOutput, error) {
		rc := wikiRequest(input)
		wiki, err := s.Directory.Wiki(ctx, rc, input.DBName)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		return &WikiOutput{Body: toWikiResponse(wiki)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-wiki-config",
		Method:      http.MethodGet,
		Path:        "/api/v1/wikis/{dbname}/config",
		Summary:     "Get a wiki's materialized configuration",
		Tags:        []string{"Config"},
	}, func(ctx context.Context, input *WikiInput) (*ConfigOutput, error) {
		snap, err := s.Snapshots.Get(ctx, wikiRequest(input))
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		return &ConfigOutput{Body: ConfigResponse{
			Mtime:      snap.Mtime,
			Globals:    snap.Globals,
			Extensions: snap.Extensions,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-wiki-extensions",
		Method:      http.MethodGet,
		Path:        "/api/v1/wikis/{dbname}/extensions",
		Summary:     "Get a wiki's active extensions",
		Tags:        []string{"Config"},
	}, func(ctx context.Context, input *WikiInput) (*ExtensionsOutput, error) {
		rc := wikiRequest(input)
		set, err := s.Extensions.Active(ctx, rc)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		version, err := s.Directory.Version(ctx, rc, input.DBName)
		if err != nil {
			return nil, s.fail(ctx, err)
		}

		resp := ExtensionsResponse{Version: version, Extensions: set.Names()}
		if s.Manifests != nil {
			if resp.Manifests, err = s.Manifests.Manifests(ctx, version, resp.Extensions); err != nil {
				return nil, s.fail(ctx, err)
			}
		}
		return &ExtensionsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-farm-clusters",
		Method:      http.MethodGet,
		Path:        "/api/v1/farms/{farm}/clusters",
		Summary:     "Map a farm's wikis to their database clusters",
		Tags:        []string{"Farms"},
	}, func(ctx context.Context, input *FarmInput) (*ClustersOutput, error) {
		rc := app.NewRequestContext(app.Request{})
		clusters, err := s.Directory.ClusterMap(ctx, rc, input.Farm)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		return &ClustersOutput{Body: clusters}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-farm-wikis",
		Method:      http.MethodGet,
		Path:        "/api/v1/farms/{farm}/wikis",
		Summary:     "List a farm's wikis",
		Tags:        []string{"Farms"},
	}, func(ctx context.Context, input *FarmWikisInput) (*FarmWikisOutput, error) {
		rc := app.NewRequestContext(app.Request{})
		names, err := s.Directory.List(ctx, rc, input.Farm, input.Deleted)
		if err != nil {
			return nil, s.fail(ctx, err)
		}
		return &FarmWikisOutput{Body: names}, nil
	})
}
