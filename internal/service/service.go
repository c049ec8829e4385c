// Package service orchestrates one newsletter issue end to end: fetch,
// narrate, assemble, render, persist, deliver.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"finbrief/internal/delivery"
	"finbrief/internal/narrative"
	"finbrief/internal/report"
	"finbrief/internal/scheduler"
	"finbrief/internal/source"
	"finbrief/internal/subscriber"
)

// FailureKind classifies where a run failed so callers can map it to an
// exit status.
type FailureKind int

const (
	// FailGenerate means no newsletter could be produced at all.
	FailGenerate FailureKind = iota + 1
	// FailPersist means the newsletter exists but could not be written out.
	FailPersist
	// FailDeliver means every delivery batch failed.
	FailDeliver
	// FailSubscribers means the recipient list could not be resolved.
	FailSubscribers
)

// Failure is a classified run error.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

func failure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Options carry the issue-level settings.
type Options struct {
	Title     string
	OutputDir string
	Chart     bool
}

// Service wires the data sources, the narrative generator, and delivery
// into a single run.
type Service struct {
	opts      Options
	market    source.MarketProvider
	economic  source.EconomicProvider
	crypto    source.CryptoProvider
	news      source.NewsProvider
	generator *narrative.Generator
	sender    delivery.Mailer
	store     *subscriber.Store
	sched     *scheduler.Weekly
	logger    zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New constructs the newsletter service.
func New(opts Options, market source.MarketProvider, economic source.EconomicProvider, crypto source.CryptoProvider, news source.NewsProvider, generator *narrative.Generator, sender delivery.Mailer, store *subscriber.Store, sched *scheduler.Weekly, logger zerolog.Logger) *Service {
	return &Service{
		opts:      opts,
		market:    market,
		economic:  economic,
		crypto:    crypto,
		news:      news,
		generator: generator,
		sender:    sender,
		store:     store,
		sched:     sched,
		logger:    logger.With().Str("component", "service").Logger(),
		now:       time.Now,
	}
}

// RunOptions control one Generate invocation.
type RunOptions struct {
	// TestMode restricts delivery to the explicit recipient list.
	TestMode bool
	// SaveOnly skips delivery entirely.
	SaveOnly bool
	// Recipients overrides the subscriber list when non-empty.
	Recipients []string
}

// RunResult summarises one completed run.
type RunResult struct {
	Newsletter report.Newsletter
	Paths      []string
	Delivered  int
	Recipients int
}

// Generate produces, persists, and optionally delivers one issue. Source
// and narrative failures degrade inside the newsletter; only a run that
// cannot produce, write, or deliver anything returns a Failure.
func (s *Service) Generate(ctx context.Context, run RunOptions) (RunResult, error) {
	var res RunResult
	date := s.now()

	s.logger.Info().Time("date", date).Msg("starting newsletter generation")

	n, err := s.build(ctx, date)
	if err != nil {
		return res, failure(FailGenerate, err)
	}
	res.Newsletter = n

	paths, err := report.WriteFiles(n, s.opts.OutputDir)
	if err != nil {
		return res, failure(FailPersist, fmt.Errorf("persist newsletter: %w", err))
	}
	res.Paths = paths
	s.logger.Info().Strs("paths", paths).Msg("newsletter written")

	if run.SaveOnly {
		return res, nil
	}

	recipients, err := s.resolveRecipients(run)
	if err != nil {
		return res, failure(FailSubscribers, err)
	}
	res.Recipients = len(recipients)

	outcome, err := s.sender.Send(ctx, n, recipients)
	res.Delivered = outcome.Delivered
	if err != nil {
		return res, failure(FailDeliver, fmt.Errorf("deliver newsletter: %w", err))
	}
	return res, nil
}

// build fetches the four snapshots one after another, then runs the
// narrative sections and assembles the issue.
func (s *Service) build(ctx context.Context, date time.Time) (report.Newsletter, error) {
	market := s.market.FetchMarket(ctx)
	economic := s.economic.FetchEconomic(ctx)
	crypto := s.crypto.FetchCrypto(ctx)
	news := s.news.FetchNews(ctx)

	if market.Failed() && economic.Failed() && crypto.Failed() && news.Failed() {
		return report.Newsletter{}, fmt.Errorf("all data sources failed: market: %s", market.Err)
	}

	for name, failed := range map[string]bool{
		"market":   market.Failed(),
		"economic": economic.Failed(),
		"crypto":   crypto.Failed(),
		"news":     news.Failed(),
	} {
		if failed {
			s.logger.Warn().Str("source", name).Msg("data source unavailable, section will degrade")
		}
	}

	dateLabel := date.Format("January 2, 2006")
	in := report.AssembleInput{
		Title: s.opts.Title,
		Date:  date,

		Introduction:     s.generator.Introduction(ctx, market, dateLabel),
		MarketAnalysis:   s.generator.MarketAnalysis(ctx, market),
		EconomicAnalysis: s.generator.EconomicAnalysis(ctx, economic),
		CryptoAnalysis:   s.generator.CryptoAnalysis(ctx, crypto),
		Outlook:          s.generator.Outlook(ctx, market, economic, news),

		MarketSummary:   source.FormatMarketReport(market),
		EconomicSummary: source.FormatEconomicReport(economic),
		CryptoSummary:   source.FormatCryptoReport(crypto),
		NewsSummary:     source.FormatNewsReport(news),
	}

	n := report.Newsletter{
		Title:    s.opts.Title,
		Date:     date,
		Markdown: report.Assemble(in),
		Raw: report.RawData{
			Market:   market,
			Economic: economic,
			Crypto:   crypto,
			News:     news,
		},
	}
	n.HTML = report.RenderHTML(n.Markdown, s.opts.Title)

	if s.opts.Chart && !market.Failed() {
		png, err := report.RenderIndexChart(market)
		if err != nil {
			s.logger.Warn().Err(err).Msg("index chart skipped")
		} else {
			n.ChartPNG = png
		}
	}

	return n, nil
}

func (s *Service) resolveRecipients(run RunOptions) ([]string, error) {
	if len(run.Recipients) > 0 {
		return run.Recipients, nil
	}
	if run.TestMode {
		return nil, fmt.Errorf("test mode requires explicit recipients")
	}
	if s.store == nil {
		return nil, fmt.Errorf("subscriber store not configured")
	}

	active := s.store.ListActive()
	if len(active) == 0 {
		return nil, fmt.Errorf("no active subscribers")
	}
	emails := make([]string, 0, len(active))
	for _, sub := range active {
		emails = append(emails, sub.Email)
	}
	return emails, nil
}

// RunScheduled blocks, generating and delivering an issue at every
// configured weekly occurrence.
func (s *Service) RunScheduled(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		_, err := s.Generate(ctx, RunOptions{})
		return err
	})
}
