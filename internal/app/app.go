// Package app wires configuration into concrete dependencies for the CLI
// commands.
package app

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"finbrief/internal/config"
	"finbrief/internal/delivery"
	"finbrief/internal/narrative"
	"finbrief/internal/scheduler"
	"finbrief/internal/service"
	"finbrief/internal/source"
	"finbrief/internal/subscriber"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSources() (source.MarketProvider, source.EconomicProvider, source.CryptoProvider, source.NewsProvider) {
	market := source.NewMarket(source.MarketOptions{
		APIKey:       a.Config.Market.APIKey,
		Indices:      a.Config.Market.Indices,
		Stocks:       a.Config.Market.Stocks,
		LookbackDays: a.Config.Market.LookbackDays,
		Timeout:      a.Config.Market.RequestTimeout,
	}, a.Logger)

	economic := source.NewEconomic(source.EconomicOptions{
		FREDAPIKey:         a.Config.Economic.FREDAPIKey,
		FREDBaseURL:        a.Config.Economic.FREDBaseURL,
		AlphaVantageAPIKey: a.Config.Economic.AlphaVantageAPIKey,
		AlphaVantageURL:    a.Config.Economic.AlphaVantageURL,
		LookbackDays:       a.Config.Economic.LookbackDays,
		Timeout:            a.Config.Economic.RequestTimeout,
	}, a.Logger)

	crypto := source.NewCrypto(source.CryptoOptions{
		BaseURL: a.Config.Crypto.BaseURL,
		APIKey:  a.Config.Crypto.APIKey,
		TopN:    a.Config.Crypto.TopN,
		Timeout: a.Config.Crypto.RequestTimeout,
	}, a.Logger)

	news := source.NewNews(a.newExtractors(), a.Config.News.MaxHeadlines, a.Logger)

	return market, economic, crypto, news
}

// newExtractors assembles the headline sources. API-keyed extractors join
// only when their key is configured; the Yahoo page scrape is always on.
func (a *App) newExtractors() []source.Extractor {
	var extractors []source.Extractor
	if a.Config.Market.APIKey != "" {
		extractors = append(extractors, source.NewFinnhubNews(a.Config.Market.APIKey, a.Config.News.RequestTimeout))
	}
	if a.Config.Economic.AlphaVantageAPIKey != "" {
		extractors = append(extractors, source.NewAlphaVantageNews(a.Config.Economic.AlphaVantageAPIKey, a.Config.Economic.AlphaVantageURL, a.Config.News.RequestTimeout))
	}
	extractors = append(extractors, source.NewYahooNews(a.Config.News.YahooURL, a.Config.News.UserAgent, a.Config.News.RequestTimeout))
	return extractors
}

func (a *App) newSender() delivery.Mailer {
	return delivery.NewSender(delivery.Options{
		APIKey:     a.Config.Email.APIKey,
		BaseURL:    a.Config.Email.BaseURL,
		Sender:     a.Config.Email.Sender,
		SenderName: a.Config.Email.SenderName,
		BatchSize:  a.Config.Email.BatchSize,
		Timeout:    a.Config.Email.RequestTimeout,
	}, a.Logger)
}

func (a *App) openStore() (*subscriber.Store, error) {
	return subscriber.Open(a.Config.Subscribers.File, a.Logger)
}

func (a *App) newService(withSchedule bool) (*service.Service, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	var sched *scheduler.Weekly
	if withSchedule {
		hour, minute := parseClock(a.Config.Scheduler.SendTime)
		sched = scheduler.New(scheduler.Options{
			Weekday: a.Config.SendWeekday(),
			Hour:    hour,
			Minute:  minute,
		}, a.Logger)
	}

	market, economic, crypto, news := a.newSources()
	generator := narrative.NewGenerator(narrative.OpenAIOptions{
		APIKey:      a.Config.OpenAI.APIKey,
		Model:       a.Config.OpenAI.Model,
		Temperature: a.Config.OpenAI.Temperature,
	}, a.Logger)

	opts := service.Options{
		Title:     a.Config.Newsletter.Title,
		OutputDir: a.Config.Newsletter.OutputDir,
		Chart:     a.Config.Newsletter.Chart,
	}

	return service.New(opts, market, economic, crypto, news, generator, a.newSender(), store, sched, a.Logger), nil
}

// parseClock splits a validated HH:MM string.
func parseClock(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 8, 0
	}
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	return hour, minute
}

// Generate runs one issue immediately.
func (a *App) Generate(ctx context.Context, run service.RunOptions) (service.RunResult, error) {
	svc, err := a.newService(false)
	if err != nil {
		return service.RunResult{}, err
	}
	return svc.Generate(ctx, run)
}

// Schedule runs the long-lived weekly loop until interrupted.
func (a *App) Schedule(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := a.newService(true)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("day", a.Config.Scheduler.SendDay).
		Str("time", a.Config.Scheduler.SendTime).
		Msg("starting weekly newsletter scheduler")

	err = svc.RunScheduled(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scheduler terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduler stopped")
	return nil
}

// AddSubscriber upserts one recipient.
func (a *App) AddSubscriber(email, name string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	return store.Add(email, name)
}

// RemoveSubscriber deletes one recipient.
func (a *App) RemoveSubscriber(email string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	return store.Remove(email)
}

// SetSubscriberActive flips a recipient's active flag.
func (a *App) SetSubscriberActive(email string, active bool) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	return store.SetActive(email, active)
}

// ListSubscribers returns every recipient on file.
func (a *App) ListSubscribers() ([]subscriber.Subscriber, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return store.All(), nil
}
