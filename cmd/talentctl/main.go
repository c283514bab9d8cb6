// Command talentctl is the operator tool for talentsearch: it issues credentials,
// prints compiled queries and resets the search index.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentsearch/internal/config"
	"github.com/kailas-cloud/talentsearch/internal/db"
	dbElastic "github.com/kailas-cloud/talentsearch/internal/db/elastic"
	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/talentsearch/internal/logger"
	authuc "github.com/kailas-cloud/talentsearch/internal/usecase/auth"
	"github.com/kailas-cloud/talentsearch/internal/version"
)

const defaultTokenTTL = 5 * time.Minute

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "talentctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "talentctl",
		Usage:   "Operate a talentsearch deployment",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name; loads config/<env>.yaml",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file; overrides --env",
				EnvVars: []string{"TALENTSEARCH_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "token",
				Usage:  "Issue a credential for the configured auth mode",
				Action: tokenCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Usage: "TOTP key name (totp mode)",
					},
					&cli.StringFlag{
						Name:  "subject",
						Usage: "Token subject (jwt mode)",
						Value: "talentctl",
					},
					&cli.StringSliceFlag{
						Name:  "scope",
						Usage: "Granted scope (jwt mode); repeatable",
						Value: cli.NewStringSlice(scope.Search),
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime (jwt mode)",
						Value: defaultTokenTTL,
					},
				},
			},
			{
				Name:      "compile",
				Usage:     "Print the compiled query and backend request body for a set of filters",
				ArgsUsage: "[key=value ...]",
				Action:    compileCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "keywords", Usage: "Keyword search text"},
					&cli.StringFlag{Name: "sort", Usage: "relevance, recency or custom_boost"},
					&cli.StringSliceFlag{Name: "boost", Usage: "Boost in field=weight format; repeatable"},
					&cli.IntFlag{Name: "page-size", Usage: "Page size"},
					&cli.StringFlag{Name: "epoch", Usage: "Reference time (date or unix seconds); defaults to now"},
					&cli.StringSliceFlag{Name: "presented", Usage: "Candidate id visible regardless of the baseline; repeatable"},
				},
			},
			{
				Name:   "reset-index",
				Usage:  "Drop and recreate the Elasticsearch index from the configured schema",
				Action: resetIndexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm that all indexed documents are deleted",
					},
					&cli.IntFlag{Name: "shards", Usage: "Primary shard count", Value: 1},
					&cli.IntFlag{Name: "replicas", Usage: "Replica count"},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(c.String("env"))
}

func tokenCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	now := time.Now()

	switch cfg.Auth.Mode {
	case "jwt":
		v, err := authuc.NewJWTVerifier(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer,
			time.Duration(cfg.Auth.JWT.LeewaySec)*time.Second)
		if err != nil {
			return err
		}
		token, err := v.Issue(c.String("subject"), scope.NewSet(c.StringSlice("scope")...), c.Duration("ttl"), now)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, token)
		return err

	case "totp":
		keys := make([]authuc.TOTPKey, len(cfg.Auth.TOTP.Keys))
		for i, k := range cfg.Auth.TOTP.Keys {
			keys[i] = authuc.TOTPKey{Name: k.Name, Secret: k.Secret, Scopes: k.Scopes}
		}
		v, err := authuc.NewTOTPVerifier(keys, time.Duration(cfg.Auth.TOTP.PeriodSec)*time.Second, cfg.Auth.TOTP.Skew)
		if err != nil {
			return err
		}
		name := c.String("key")
		if name == "" {
			name = keys[0].Name
		}
		code, err := v.Code(name, now)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.App.Writer, "%s:%s\n", name, code)
		return err
	}
	return errors.Newf("auth mode %q issues no credentials", cfg.Auth.Mode)
}

func compileCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := cfg.Schema.Catalog()
	if err != nil {
		return err
	}

	raw, err := parsePairs(c.Args().Slice())
	if err != nil {
		return err
	}
	boosts, err := parseBoosts(c.StringSlice("boost"))
	if err != nil {
		return err
	}
	epoch := time.Now().UTC()
	if e := c.String("epoch"); e != "" {
		if epoch, err = request.ParseEpoch(e); err != nil {
			return err
		}
	}

	normalizer := filter.NewNormalizer(catalog)
	criteria, err := normalizer.Normalize(raw)
	if err != nil {
		return err
	}
	visibility, err := normalizer.Normalize(filter.ResolveEpoch(cfg.Search.BaselineFilters, epoch))
	if err != nil {
		return errors.Wrap(err, "baseline filters")
	}
	presented := c.StringSlice("presented")
	if len(presented) == 0 {
		criteria = append(visibility, criteria...)
		visibility = nil
	}

	req, err := request.New(request.Params{
		Criteria:  criteria,
		Keywords:  c.String("keywords"),
		Sort:      mode.Sort(c.String("sort")),
		Boosts:    boosts,
		PageSize:  c.Int("page-size"),
		Epoch:     epoch,
		Presented: presented,
	}, catalog)
	if err != nil {
		return err
	}

	opts := []query.Option{query.WithKeywords(req.Keywords(), catalog.KeywordFields())}
	if len(visibility) > 0 {
		opts = append(opts, query.WithVisibility(visibility, catalog.IDField(), req.Presented()))
	}
	q := query.Compile(req.Criteria(), opts...)
	plan := ranking.NewPlan(req.Sort(), req.Epoch(), cfg.Search.HalfLifeDays, catalog.RecencyField(),
		req.Criteria(), req.Boosts())
	body := dbElastic.RenderSearch(&db.SearchQuery{
		Index:   cfg.Backend.Index,
		Query:   q,
		Plan:    plan,
		IDField: catalog.IDField(),
		Size:    req.PageSize() + 1,
	})

	out := c.App.Writer
	if _, err := fmt.Fprintf(out, "compiled: %s\n", q); err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}

func resetIndexCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("reset-index deletes every indexed candidate; pass --yes to confirm")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Backend.Driver != "elastic" {
		return errors.Newf("reset-index needs the elastic driver, config uses %q", cfg.Backend.Driver)
	}
	catalog, err := cfg.Schema.Catalog()
	if err != nil {
		return err
	}

	logger, err := logpkg.NewLogger(c.String("env"), "")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	def, err := db.NewIndex(cfg.Backend.Index).
		FromCatalog(catalog).
		Shards(c.Int("shards")).
		Replicas(c.Int("replicas")).
		Build()
	if err != nil {
		return err
	}

	store, err := dbElastic.NewStore(dbElastic.Config{
		Addrs:    cfg.Backend.Addrs,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	if err := store.DropIndex(ctx, def.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return errors.Wrapf(err, "drop index %s", def.Name)
	}
	if err := store.CreateIndex(ctx, def); err != nil {
		return errors.Wrapf(err, "create index %s", def.Name)
	}
	logger.Info("Index reset", zap.String("index", def.Name), zap.Int("fields", len(def.Fields)))
	_, err = fmt.Fprintf(c.App.Writer, "index %s recreated\n", def.Name)
	return err
}

// parsePairs turns key=value arguments into raw filters; repeated keys accumulate.
func parsePairs(args []string) (map[string][]string, error) {
	raw := make(map[string][]string)
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, errors.Newf("filter must be in key=value format: %q", arg)
		}
		raw[k] = append(raw[k], v)
	}
	return raw, nil
}

func parseBoosts(items []string) (map[string]float64, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(items))
	for _, item := range items {
		field, w, ok := strings.Cut(item, "=")
		if !ok || field == "" {
			return nil, errors.Newf("boost must be in field=weight format: %q", item)
		}
		weight, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "boost %s", field)
		}
		out[field] = weight
	}
	return out, nil
}
