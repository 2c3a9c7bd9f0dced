// Package pipeline wires detection, parsing, standardization, the analysis
// models and the report aggregator into one Run call. It is the only entry
// point external callers need: bytes in, report out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"drivetest/internal/analysis"
	"drivetest/internal/config"
	"drivetest/internal/formats"
	"drivetest/internal/report"
	"drivetest/internal/standardize"
	"drivetest/internal/store"
	"drivetest/pkg/contracts/domain"
)

// Result is the complete output of one pipeline run. The dataset is shared
// read-only with callers; nothing mutates it after Run returns.
type Result struct {
	Session domain.DriveTestSession
	Dataset *domain.Dataset
	Report  *domain.AnalysisReport
}

// Pipeline executes the ingestion and analysis stages for one file at a
// time. It is safe for concurrent use; each Run is independent.
type Pipeline struct {
	analyzers    []analysis.Analyzer
	standardizer *standardize.Standardizer
	aggregator   *report.Aggregator
	sink         store.Store
	logger       *slog.Logger
	tracer       trace.Tracer
}

// New validates the configuration and assembles a pipeline. sink may be nil;
// analysis then runs without persistence.
func New(cfg *config.Config, sink store.Store, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = store.NopStore{}
	}
	return &Pipeline{
		analyzers:    analysis.All(cfg.Analysis, logger),
		standardizer: standardize.NewStandardizer(logger),
		aggregator:   report.NewAggregator(cfg.Report, logger),
		sink:         sink,
		logger:       logger,
		tracer:       otel.Tracer("drivetest/pipeline"),
	}, nil
}

// Run processes one uploaded file end to end. Fatal errors are an
// unrecognized format, a non-recoverable parse failure, or cancellation;
// storage failures are logged and absorbed.
func (p *Pipeline) Run(ctx context.Context, content []byte, filename string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("filename", filename),
			attribute.Int("size_bytes", len(content)),
		))
	defer span.End()

	started := time.Now()

	ds, err := p.buildDataset(ctx, content, filename)
	if err != nil {
		return nil, err
	}

	session := domain.DriveTestSession{
		ID:          uuid.NewString(),
		UploadedAt:  time.Now().UTC(),
		Filename:    filename,
		Format:      ds.Format,
		RecordCount: ds.Len(),
	}
	session.StartTime, session.EndTime = ds.TimeRange()

	byCategory, err := p.analyze(ctx, ds)
	if err != nil {
		return nil, err
	}

	_, aggSpan := p.tracer.Start(ctx, "pipeline.aggregate")
	analysisReport := p.aggregator.Aggregate(session.ID, ds, byCategory)
	aggSpan.End()

	p.persist(ctx, &session, analysisReport)

	p.logger.InfoContext(ctx, "pipeline run complete",
		slog.String("session_id", session.ID),
		slog.String("filename", filename),
		slog.String("format", string(ds.Format)),
		slog.Int("records", ds.Len()),
		slog.Int("issues", len(analysisReport.Issues)),
		slog.Duration("elapsed", time.Since(started)))

	return &Result{Session: session, Dataset: ds, Report: analysisReport}, nil
}

// buildDataset covers detect, parse and standardize. Any error here is
// fatal; a partially built dataset is never returned.
func (p *Pipeline) buildDataset(ctx context.Context, content []byte, filename string) (*domain.Dataset, error) {
	_, detectSpan := p.tracer.Start(ctx, "pipeline.detect")
	format, err := formats.Detect(content, filename)
	detectSpan.End()
	if err != nil {
		p.logger.WarnContext(ctx, "format detection failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return nil, err
	}

	parser, err := formats.ForFormat(format, p.logger)
	if err != nil {
		return nil, err
	}

	parseCtx, parseSpan := p.tracer.Start(ctx, "pipeline.parse",
		trace.WithAttributes(attribute.String("format", string(format))))
	raw, stats, err := parser.Parse(parseCtx, content)
	parseSpan.End()
	if err != nil {
		return nil, fmt.Errorf("parsing %s input: %w", format, err)
	}

	// Stage spans are siblings under the run span, not nested in each other.
	stdCtx, stdSpan := p.tracer.Start(ctx, "pipeline.standardize")
	ds, err := p.standardizer.Standardize(stdCtx, format, raw, standardize.ParseInfo{
		Rows:    stats.Rows,
		Skipped: stats.Skipped,
		Reasons: stats.Reasons,
	})
	stdSpan.End()
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// analyze fans the models out one goroutine each over the shared dataset and
// joins them. The first model error cancels the rest.
func (p *Pipeline) analyze(ctx context.Context, ds *domain.Dataset) (map[domain.IssueCategory][]domain.Issue, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([][]domain.Issue, len(p.analyzers))

	for i, a := range p.analyzers {
		i, a := i, a
		g.Go(func() error {
			mctx, span := p.tracer.Start(gctx, "pipeline.analyze",
				trace.WithAttributes(attribute.String("category", string(a.Category()))))
			defer span.End()

			issues, err := a.Analyze(mctx, ds)
			if err != nil {
				return fmt.Errorf("%s analysis: %w", a.Category(), err)
			}
			results[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCategory := make(map[domain.IssueCategory][]domain.Issue, len(p.analyzers))
	for i, a := range p.analyzers {
		byCategory[a.Category()] = results[i]
	}
	return byCategory, nil
}

// persist hands the session and report to the sink. Storage failures never
// fail the run.
func (p *Pipeline) persist(ctx context.Context, session *domain.DriveTestSession, rep *domain.AnalysisReport) {
	ctx, span := p.tracer.Start(ctx, "pipeline.persist")
	defer span.End()

	if err := p.sink.SaveSession(ctx, session); err != nil {
		p.logger.WarnContext(ctx, "failed to persist session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
		return
	}
	if err := p.sink.SaveReport(ctx, rep); err != nil {
		p.logger.WarnContext(ctx, "failed to persist report",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
	}
}
