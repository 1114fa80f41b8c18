// Package decalflow wires the decal application together: the flow
// registry and invoker, the catalog flows and the stores behind them.
//
// Most applications create a DecalFlow from configuration and either
// invoke flows directly or serve them over HTTP:
//
//	cfg, _ := config.Load()
//	app, err := decalflow.NewFromConfig(ctx, cfg)
//	if err != nil { ... }
//	defer app.Close()
//	out, err := app.Invoke(ctx, catalog.FlowGenerateTitle, map[string]any{"prompt": "a glass dragon"})
//
// All defaults are in-memory and safe for local development and testing;
// production deployments configure MongoDB, S3 and a partner API.
package decalflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/decalflow/artifact"
	s3store "github.com/hupe1980/decalflow/artifact/s3"
	"github.com/hupe1980/decalflow/catalog"
	"github.com/hupe1980/decalflow/config"
	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/flow"
	"github.com/hupe1980/decalflow/fulfillment"
	"github.com/hupe1980/decalflow/gallery"
	"github.com/hupe1980/decalflow/logging"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/model/provider"
	"github.com/hupe1980/decalflow/server"
	"github.com/hupe1980/decalflow/session"
)

// Options configures a DecalFlow instance.
type Options struct {
	// Stores (default to in-memory implementations if not provided)
	Artifacts core.ArtifactStore
	Gallery   gallery.Store
	Sessions  core.SessionStore

	// Partners receives fulfillment orders. Defaults to a simulated partner.
	Partners *fulfillment.Directory

	// ImageModel and SpeechModel override the backend model of the image
	// and narration flows.
	ImageModel  string
	SpeechModel string

	// Flows are registered in addition to the catalog.
	Flows []flow.Definition

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// DecalFlow is the application façade.
type DecalFlow struct {
	opts     Options
	registry *flow.Registry
	invoker  *flow.Invoker
	closers  []func() error
}

// New creates a DecalFlow on top of m with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(m model.Model, optFns ...func(o *Options)) (*DecalFlow, error) {
	opts := Options{
		Artifacts: artifact.NewInMemoryStore(),
		Gallery:   gallery.NewInMemoryStore(),
		Sessions:  session.NewInMemoryStore(),
		Partners:  fulfillment.NewDirectory(fulfillment.NewSimulatedPartner("simulated")),
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if m == nil {
		return nil, errors.New("decalflow: model is required")
	}

	reg := flow.NewRegistry()
	err := catalog.Register(reg, catalog.Deps{
		Partners:    opts.Partners,
		Artifacts:   opts.Artifacts,
		Gallery:     opts.Gallery,
		Sessions:    opts.Sessions,
		Logger:      opts.Logger,
		ImageModel:  opts.ImageModel,
		SpeechModel: opts.SpeechModel,
	})
	if err != nil {
		return nil, err
	}
	for _, def := range opts.Flows {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	reg.Seal()

	inv := flow.NewInvoker(reg, m, func(o *flow.InvokerOptions) { o.Logger = opts.Logger })
	return &DecalFlow{opts: opts, registry: reg, invoker: inv}, nil
}

// newModel is the backend constructor used by NewFromConfig.
var newModel = provider.New

// NewFromConfig builds the backend, stores and partners described by cfg.
// optFns are applied after the configured services, so callers can add
// flows or replace individual stores. Call Close to release database
// connections and the backend client.
func NewFromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (_ *DecalFlow, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.New(cfg.Log)

	var closers []func() error
	defer func() {
		if err != nil {
			if cerr := closeAll(closers); cerr != nil {
				logger.Warn("decalflow.close.failed", "error", cerr.Error())
			}
		}
	}()

	m, err := newModel(ctx, provider.Config{Provider: cfg.Provider, Model: cfg.Model, APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}
	if c, ok := m.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	var designs gallery.Store = gallery.NewInMemoryStore()
	if cfg.Mongo.URI != "" {
		ms, err := gallery.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, gallery.DefaultCollection)
		if err != nil {
			return nil, fmt.Errorf("connect gallery store: %w", err)
		}
		closers = append(closers, ms.Close)
		if err := ms.CreateSchema(ctx); err != nil {
			logger.Warn("gallery.schema.failed", "error", err.Error())
		}
		designs = ms
	}

	var artifacts core.ArtifactStore = artifact.NewInMemoryStore()
	if cfg.S3.Bucket != "" {
		artifacts, err = s3store.NewStore(func(o *s3store.Options) {
			o.Bucket = cfg.S3.Bucket
			o.Region = cfg.S3.Region
			o.Endpoint = cfg.S3.Endpoint
			o.AccessKey = cfg.S3.AccessKey
			o.SecretKey = cfg.S3.SecretKey
			o.UsePathStyle = cfg.S3.Endpoint != ""
		})
		if err != nil {
			return nil, fmt.Errorf("create artifact store: %w", err)
		}
	}

	var partner fulfillment.Partner
	if cfg.Partner.URL != "" {
		partner = fulfillment.NewHTTPPartner(cfg.Partner.ID, cfg.Partner.URL, func(o *fulfillment.HTTPPartnerOptions) {
			o.APIKey = cfg.Partner.APIKey
			o.Logger = logger
		})
	} else {
		partner = fulfillment.NewSimulatedPartner(cfg.Partner.ID, func(o *fulfillment.SimulatedPartnerOptions) {
			o.FailureRate = cfg.Partner.FailureRate
			o.Logger = logger
		})
	}

	app, err := New(m, append([]func(o *Options){func(o *Options) {
		o.Artifacts = artifacts
		o.Gallery = designs
		o.Partners = fulfillment.NewDirectory(partner)
		o.ImageModel = cfg.ImageModel
		o.SpeechModel = cfg.SpeechModel
		o.Logger = logger
	}}, optFns...)...)
	if err != nil {
		return nil, err
	}
	app.closers = closers
	logger.Info("decalflow.ready", "provider", cfg.Provider, "flows", len(app.registry.List()))
	return app, nil
}

// Invoke runs a flow synchronously.
func (d *DecalFlow) Invoke(ctx context.Context, name string, input any) (any, error) {
	return d.invoker.Invoke(ctx, name, input)
}

// Flows lists the registered flows sorted by name.
func (d *DecalFlow) Flows() []*flow.Definition { return d.registry.List() }

// Invoker exposes the underlying invoker.
func (d *DecalFlow) Invoker() *flow.Invoker { return d.invoker }

// Gallery returns the design store.
func (d *DecalFlow) Gallery() gallery.Store { return d.opts.Gallery }

// Sessions returns the shopping session store.
func (d *DecalFlow) Sessions() core.SessionStore { return d.opts.Sessions }

// Artifacts returns the media artifact store.
func (d *DecalFlow) Artifacts() core.ArtifactStore { return d.opts.Artifacts }

// Server creates the HTTP surface over this instance.
func (d *DecalFlow) Server(optFns ...func(o *server.Options)) *server.Server {
	return server.New(d.invoker, append([]func(o *server.Options){func(o *server.Options) {
		o.Gallery = d.opts.Gallery
		o.Sessions = d.opts.Sessions
		o.Logger = d.opts.Logger
	}}, optFns...)...)
}

// Close releases resources acquired by NewFromConfig.
func (d *DecalFlow) Close() error { return closeAll(d.closers) }

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
