package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/docextract/internal/config"
	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/fieldmodel"
	"github.com/sells-group/docextract/internal/monitoring"
	"github.com/sells-group/docextract/internal/pipeline"
	"github.com/sells-group/docextract/internal/present"
	"github.com/sells-group/docextract/internal/resilience"
	"github.com/sells-group/docextract/internal/upload"
)

// extractEnv holds the gateway, pipeline and presenter shared by the
// serve/extract/mcp commands.
type extractEnv struct {
	Gateway   *extract.Gateway
	Breakers  *resilience.Breakers
	Pipeline  *pipeline.Pipeline
	Presenter *present.Presenter
}

// initEnv builds providers for the configured mode, wraps them in circuit
// breakers and assembles the pipeline. Metrics may be nil.
func initEnv(c *config.Config, m *monitoring.Metrics) (*extractEnv, error) {
	providers, err := extract.NewProviders(c)
	if err != nil {
		return nil, eris.Wrap(err, "init providers")
	}

	rc := resilience.FromConfig(c.Resilience)
	if m != nil {
		rc.OnStateChange = m.BreakerStateChanged
	}
	breakers := resilience.NewBreakers(rc)

	gw := extract.NewGateway(providers,
		extract.WithTimeout(c.Extraction.Timeout()),
		extract.WithBreakers(breakers),
	)

	builder := fieldmodel.New(nil)
	var opts []pipeline.Option
	if m != nil {
		opts = append(opts, pipeline.WithRecorder(m))
	}
	p := pipeline.New(
		upload.NewValidator(c.Extraction.MaxFileSizeBytes(), c.Extraction.AllowedTypes),
		gw, builder, opts...,
	)

	return &extractEnv{
		Gateway:   gw,
		Breakers:  breakers,
		Pipeline:  p,
		Presenter: present.New(builder, present.WithOrganization(c.Export.Organization)),
	}, nil
}
