package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/infra/i18n"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/usecase"
)

var (
	flagLat  float64
	flagLng  float64
	flagDate string
	flagLang string
)

var timingsCmd = &cobra.Command{
	Use:   "timings",
	Short: "Print the prayer times for a location",
	Example: `  salah-bot timings --lat 21.4225 --lng 39.8262
  salah-bot timings --lat 51.5 --lng -0.12 --date 2026-12-01 --lang ar`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loc, err := model.NewLocation(flagLat, flagLng)
		if err != nil {
			return err
		}
		tz, err := cfg.Location()
		if err != nil {
			return err
		}
		date := time.Now().In(tz)
		if flagDate != "" {
			if date, err = time.ParseInLocation(time.DateOnly, flagDate, tz); err != nil {
				return fmt.Errorf("--date: use YYYY-MM-DD")
			}
		}
		lang, err := model.ParseLanguage(flagLang)
		if err != nil {
			return fmt.Errorf("--lang: %w", err)
		}

		logger := logging.New(cfg.Log, cfg.Runtime.Dev)
		tr, err := i18n.NewDefaultTranslator()
		if err != nil {
			return err
		}
		s, err := newProvider(cfg, nil, logger).GetSchedule(cmd.Context(), loc, date)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatTimings(tr, lang, s, -1))
		return nil
	},
}

func init() {
	timingsCmd.Flags().Float64Var(&flagLat, "lat", 0, "latitude")
	timingsCmd.Flags().Float64Var(&flagLng, "lng", 0, "longitude")
	timingsCmd.Flags().StringVar(&flagDate, "date", "", "date as YYYY-MM-DD (default today)")
	timingsCmd.Flags().StringVar(&flagLang, "lang", string(model.DefaultLanguage), "output language (en|ar)")
	_ = timingsCmd.MarkFlagRequired("lat")
	_ = timingsCmd.MarkFlagRequired("lng")
}
