package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/bebther/bebther/internal/api"
	"github.com/bebther/bebther/internal/app"
	"github.com/bebther/bebther/internal/models"
	"github.com/bebther/bebther/internal/provider"
	"github.com/bebther/bebther/internal/store"
)

type CLI struct {
	DB            string `help:"Path to the SQLite database." default:"data/bebther.db" env:"BEBTHER_DB"`
	Settings      string `help:"Path to the settings file." default:"settings.json" env:"BEBTHER_SETTINGS"`
	Timezone      string `help:"Timezone for dates and sunrise/sunset times." default:"" env:"BEBTHER_TZ"`
	OWMAPIKey     string `name:"owm-api-key" help:"OpenWeatherMap API key." env:"OWM_API_KEY"`
	WeatherAPIKey string `name:"weatherapi-key" help:"weatherapi.com API key." env:"WEATHERAPI_KEY"`

	Serve ServeCmd `cmd:"" default:"withargs" help:"Run the web UI."`
	Fetch FetchCmd `cmd:"" help:"Fetch current weather and print it."`
	Save  SaveCmd  `cmd:"" help:"Fetch current weather and store it as today's record."`
	Show  ShowCmd  `cmd:"" help:"Print the stored record for a date."`
}

type ServeCmd struct {
	Port string `help:"HTTP server port." default:"8080" env:"BEBTHER_PORT"`
}

func (c *ServeCmd) Run(a *app.App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(a, c.Port)
	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type FetchCmd struct {
	City     string `help:"City to fetch, overriding the default." optional:""`
	Provider string `help:"Provider to fetch from." optional:""`
}

func (c *FetchCmd) Run(a *app.App) error {
	rec, err := fetch(a, c.City, c.Provider)
	if err != nil {
		return err
	}
	printRecord(rec)
	return nil
}

type SaveCmd struct {
	City     string `help:"City to fetch, overriding the default." optional:""`
	Provider string `help:"Provider to fetch from." optional:""`
}

func (c *SaveCmd) Run(a *app.App) error {
	rec, err := fetch(a, c.City, c.Provider)
	if err != nil {
		return err
	}
	if err := a.SaveToday(); err != nil {
		return err
	}
	fmt.Printf("saved %s (%s) for today\n", rec.City, rec.Source)
	return nil
}

type ShowCmd struct {
	Date string `arg:"" help:"Date to show (YYYY-MM-DD)."`
}

func (c *ShowCmd) Run(a *app.App, loc *time.Location) error {
	date, err := time.ParseInLocation("2006-01-02", c.Date, loc)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", c.Date)
	}
	rec, err := a.RecordForDate(date)
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Printf("no weather logged for %s\n", c.Date)
		return nil
	}
	printRecord(rec)
	return nil
}

func fetch(a *app.App, city, providerName string) (*models.WeatherRecord, error) {
	if city != "" {
		a.SetCity(city)
	}
	if providerName != "" {
		if err := a.SelectProvider(providerName); err != nil {
			return nil, err
		}
	}
	return a.Refresh(context.Background())
}

func printRecord(rec *models.WeatherRecord) {
	if !rec.Date.IsZero() {
		fmt.Printf("Date:        %s\n", rec.Date.Format("2006-01-02"))
	}
	fmt.Printf("City:        %s\n", rec.City)
	fmt.Printf("Source:      %s\n", rec.Source)
	fmt.Printf("Temperature: %.1f\n", rec.Temperature)
	fmt.Printf("Day:         %.1f\n", rec.DayTemperature)
	fmt.Printf("Night:       %.1f\n", rec.NightTemperature)
	fmt.Printf("Humidity:    %.0f%%\n", rec.Humidity)
	fmt.Printf("Wind:        %.1f m/s\n", rec.WindSpeed)
	fmt.Printf("Pressure:    %.0f\n", rec.Pressure)
	fmt.Printf("UV index:    %.1f\n", rec.UVIndex)
	fmt.Printf("Sunrise:     %s\n", rec.SunriseTime)
	fmt.Printf("Sunset:      %s\n", rec.SunsetTime)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bebther"),
		kong.Description("Fetch, view and log daily weather for a city."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)

	loc := time.Local
	if cli.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cli.Timezone); err != nil {
			log.Printf("Warning: could not load timezone %s, using local: %v", cli.Timezone, err)
			loc = time.Local
		}
	}

	st, err := store.Open(cli.DB, loc)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if cli.OWMAPIKey == "" && cli.WeatherAPIKey == "" {
		log.Println("Warning: no provider API keys configured, fetches will fail")
	}

	registry := provider.NewRegistry(
		provider.NewOpenWeatherMap(cli.OWMAPIKey, loc),
		provider.NewWeatherAPI(cli.WeatherAPIKey),
	)
	a := app.New(st, registry, cli.Settings, loc)

	err = ctx.Run(a, loc)
	ctx.FatalIfErrorf(err)
}
