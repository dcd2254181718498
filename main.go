package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"skydash/api"
	"skydash/config"
	"skydash/internal/errorutil"
	"skydash/internal/logger"
	"skydash/presenter"
)

const usage = `Usage: skydash [flags] <command> [args]

Commands:
  suggest <query>        list matching cities
  locate                 resolve the current location
  dashboard [lat lon]    build the weather dashboard (current location when omitted)

Flags:
`

func main() {
	// Define command-line flags
	configPath := flag.String("config", getDefaultConfigPath(), "Path to TOML configuration file")
	logLevel := flag.String("log-level", "", "Override the configured logging level (debug, info, warn, error)")
	apiKey := flag.String("api-key", "", "OpenWeather key for city suggestions (default: configured key)")
	generateConfig := flag.Bool("generate-config", false, "Generate a sample configuration file and exit")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// Handle config generation
	if *generateConfig {
		if err := config.GenerateSampleConfig(*configPath); err != nil {
			logger.Fatal("Failed to generate sample config: %v", err)
		}
		logger.Info("Sample configuration file created at: %s", *configPath)
		logger.Info("Please edit the file to add your OpenWeather API key")
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		var configNotFound *config.ConfigNotFoundError
		if errors.As(err, &configNotFound) {
			logger.Fatal("%v", err)
		}
		logger.Fatal("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		if _, err := logger.ParseLevel(*logLevel); err != nil {
			logger.Fatal("Invalid log level: %s", *logLevel)
		}
		cfg.Logging.Level = *logLevel
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Configuration validation failed: %v", err)
	}

	if err := logger.Initialize(loggerConfig(cfg.Logging)); err != nil {
		logger.Fatal("Failed to initialize logging: %v", err)
	}
	defer logger.Get().Close()

	logger.Debug("Configuration loaded and validated from: %s", *configPath)

	app, err := newApp(cfg)
	if err != nil {
		logger.Fatal("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := app.run(ctx, args, *apiKey)
	if err != nil {
		logger.LogStructuredError(err, map[string]any{"command": args[0]})
		fmt.Fprintf(os.Stderr, "skydash: %v\n", err)
		stop()
		logger.Get().Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal("Failed to write output: %v", err)
	}
}

// app holds the wired components for one invocation
type app struct {
	client      *api.OpenWeatherClient
	suggestions *api.SuggestionService
	presenter   *presenter.Presenter
}

func newApp(cfg *config.Config) (*app, error) {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone: %w", err)
	}

	client := api.NewOpenWeatherClient(cfg.APIs.OpenWeather, api.ClientOptions{
		BaseURL:   cfg.OpenWeather.BaseURL,
		UserAgent: cfg.OpenWeather.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})

	service := api.NewSuggestionService(client, newGeolocator(cfg), api.SuggestionOptions{
		Limit:           cfg.Suggestions.Limit,
		MinQueryLength:  cfg.Suggestions.MinQueryLength,
		CacheTTL:        cfg.CacheTTL(),
		MaxEntries:      cfg.Suggestions.CacheMaxEntries,
		LocationTimeout: cfg.LocationTimeout(),
	})

	return &app{
		client:      client,
		suggestions: service,
		presenter:   presenter.New(loc),
	}, nil
}

// newGeolocator returns nil when the host has no position source
func newGeolocator(cfg *config.Config) api.Geolocator {
	switch cfg.Location.Provider {
	case config.ProviderStatic:
		return api.NewStaticGeolocator(cfg.Location.Latitude, cfg.Location.Longitude)
	case config.ProviderIP:
		return api.NewIPGeolocator(cfg.Location.IPLookupURL, cfg.OpenWeather.UserAgent, cfg.LocationTimeout())
	default:
		return nil
	}
}

// dashboard is the output of the dashboard command
type dashboard struct {
	Location *api.LocationResult    `json:"location"`
	Weather  *presenter.WeatherView `json:"weather"`
}

func (a *app) run(ctx context.Context, args []string, apiKey string) (any, error) {
	switch args[0] {
	case "suggest":
		if len(args) < 2 {
			return nil, errors.New("suggest requires a query")
		}
		return a.suggestions.SearchCities(ctx, strings.Join(args[1:], " "), apiKey)

	case "locate":
		return a.suggestions.GetCurrentLocation(ctx)

	case "dashboard":
		var out dashboard
		err := errorutil.ExecuteWithLogging(logger.Get().Logger, "dashboard", func() error {
			place, err := a.place(ctx, args[1:])
			if err != nil {
				return err
			}
			bundle, err := a.client.GetWeatherBundle(ctx, place.Lat, place.Lon)
			if err != nil {
				return fmt.Errorf("failed to fetch weather: %w", err)
			}
			out = dashboard{
				Location: place,
				Weather:  a.presenter.Process(bundle.Current, bundle.Forecast, bundle.Air),
			}
			return nil
		}, slog.Int("args", len(args)-1))
		if err != nil {
			return nil, err
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

// place resolves explicit coordinates, or the current location when none are given
func (a *app) place(ctx context.Context, args []string) (*api.LocationResult, error) {
	switch len(args) {
	case 0:
		return a.suggestions.GetCurrentLocation(ctx)
	case 2:
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q: %w", args[0], err)
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q: %w", args[1], err)
		}
		if verr := errorutil.ValidateCoordinate("latitude", lat, true); verr != nil {
			return nil, verr
		}
		if verr := errorutil.ValidateCoordinate("longitude", lon, false); verr != nil {
			return nil, verr
		}
		return &api.LocationResult{Lat: lat, Lon: lon}, nil
	default:
		return nil, errors.New("dashboard takes either no arguments or <lat> <lon>")
	}
}

func loggerConfig(l config.Logging) logger.Config {
	return logger.Config{
		Enabled:         l.Enabled,
		Directory:       l.Directory,
		FilenamePattern: l.FilenamePattern,
		Level:           l.Level,
		MaxFiles:        l.MaxFiles,
		MaxSizeMB:       l.MaxSizeMB,
		ConsoleOutput:   l.ConsoleOutput,
	}
}

// getDefaultConfigPath returns a cross-platform default config path
func getDefaultConfigPath() string {
	// Try to use config.toml in the current directory
	return filepath.Clean("config.toml")
}
