// Package commands holds the panchangctl subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/panchang-api/internal/calendar"
	"github.com/zapponejosh/panchang-api/internal/config"
	"github.com/zapponejosh/panchang-api/internal/database"
	"github.com/zapponejosh/panchang-api/internal/llm"
	"github.com/zapponejosh/panchang-api/internal/logger"
	"github.com/zapponejosh/panchang-api/internal/panchang"
	"github.com/zapponejosh/panchang-api/internal/timeline"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "panchangctl",
		Short:         "Query the almanac generator and inspect the cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewDayCommand())
	root.AddCommand(NewMonthCommand())
	root.AddCommand(NewParseCommand())
	root.AddCommand(NewCacheCommand())

	return root
}

// NewDayCommand creates the day command.
func NewDayCommand() *cobra.Command {
	var (
		date, location, lang, region string
		lat, lng                     float64
		asJSON                       bool
	)

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Print the almanac for one day",
		Long:  "Fetch one day's almanac (from the cache when fresh) and print its timings and timeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			q, err := env.query(date, location, lang, region)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				q.Coords = &panchang.Coordinates{Lat: lat, Lng: lng}
			}

			data, err := env.svc.Day(cmd.Context(), q)
			if err != nil {
				return err
			}
			tl := data.Timeline(q.Language != panchang.LanguageEnglish)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{"panchang": data, "timeline": tl})
			}
			printDay(out, data, tl)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&date, "date", "", "date as YYYY-MM-DD (default today in TIMEZONE)")
	f.StringVar(&location, "location", "", "city or place name (default DEFAULT_LOCATION)")
	f.StringVar(&lang, "lang", "", "telugu, tamil, hindi or english")
	f.StringVar(&region, "region", "", "andhra, tamilnadu or north")
	f.Float64Var(&lat, "lat", 0, "latitude")
	f.Float64Var(&lng, "lng", 0, "longitude")
	f.BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

// NewMonthCommand creates the month command.
func NewMonthCommand() *cobra.Command {
	var (
		year, month      int
		location, region string
	)

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print per-day highlights for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			now := env.svc.Now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			q, err := env.query("", location, "", region)
			if err != nil {
				return err
			}

			highlights, err := env.svc.Month(cmd.Context(), panchang.MonthQuery{
				Year:     year,
				Month:    time.Month(month),
				Location: q.Location,
				Region:   q.Region,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, %s\n", calendar.MonthLabel(year, time.Month(month)), q.Location)
			for _, week := range calendar.MonthGrid(year, time.Month(month), time.Sunday) {
				var line strings.Builder
				for _, c := range week {
					if !c.InMonth {
						line.WriteString("     ")
						continue
					}
					fmt.Fprintf(&line, " %2d%s ", c.Day, highlightMark(highlights.Highlight(c.Date)))
				}
				fmt.Fprintln(out, strings.TrimRight(line.String(), " "))
			}
			fmt.Fprintln(out, "+ auspicious  - inauspicious")
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&year, "year", 0, "year (default current)")
	f.IntVar(&month, "month", 0, "month 1-12 (default current)")
	f.StringVar(&location, "location", "", "city or place name (default DEFAULT_LOCATION)")
	f.StringVar(&region, "region", "", "andhra, tamilnadu or north")

	return cmd
}

// NewParseCommand creates the parse command. It runs offline.
func NewParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse RANGE...",
		Short: "Parse time ranges the way the timeline does",
		Example: `  panchangctl parse "6:00 AM - 7:30 AM" "11:59 AM to 12:45 PM"
  panchangctl parse "11:30 PM - 1:00 AM"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INPUT\tSTART\tEND\tLEFT\tWIDTH\tNOTE")

			var failed int
			for _, raw := range args {
				r, ok := timeline.ParseRange(raw)
				if !ok {
					failed++
					fmt.Fprintf(w, "%s\t-\t-\t-\t-\tunparseable\n", raw)
					continue
				}
				seg := timeline.NewSegment("", "", raw, r)
				note := ""
				if seg.CrossesMidnight {
					note = "crosses midnight"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f%%\t%.2f%%\t%s\n",
					raw, clock(r.Start), clock(r.End), seg.Left, seg.Width, note)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d ranges could not be parsed", failed, len(args))
			}
			return nil
		},
	}
}

// NewCacheCommand creates the cache command with subcommands.
func NewCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the response cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cache and fetch log statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			stats, err := env.db.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			n, err := env.db.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
			return nil
		},
	})

	return cacheCmd
}

// =============================================================================
// Helpers
// =============================================================================

type cliEnv struct {
	cfg *config.Config
	db  *database.DB
	svc *panchang.Service
}

// setup loads configuration and wires the cache and generator the same way
// the server does.
func setup() (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.Setup(cfg).With(slog.String("component", "cli"))

	db, err := database.Open(database.DefaultConfig(cfg.CachePath), log)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	gen := llm.New(llm.Config{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.LLMAPIKey,
		DayModel:          cfg.LLMDayModel,
		MonthModel:        cfg.LLMMonthModel,
		MaxRetries:        cfg.LLMMaxRetries,
		Timeout:           cfg.LLMTimeout,
		RequestsPerMinute: cfg.LLMRequestsPerMin,
		Logger:            log,
	})
	svc := panchang.NewService(gen, database.NewResponseCache(db), panchang.Options{
		CacheTTL: cfg.CacheTTL,
		Location: cfg.Location(),
		Logger:   log,
	})

	return &cliEnv{cfg: cfg, db: db, svc: svc}, nil
}

func (e *cliEnv) close() {
	e.db.Close()
}

// query fills empty flags from configuration.
func (e *cliEnv) query(date, location, lang, region string) (panchang.Query, error) {
	q := panchang.Query{Location: location}
	if q.Location == "" {
		q.Location = e.cfg.DefaultLocation
	}

	if date == "" {
		q.Date = calendar.StartOfDay(e.svc.Now())
	} else {
		d, err := calendar.ParseDateIn(date, e.svc.Location())
		if err != nil {
			return q, fmt.Errorf("invalid --date %q, use YYYY-MM-DD", date)
		}
		q.Date = d
	}

	if lang == "" {
		lang = e.cfg.DefaultLanguage
	}
	l, err := panchang.ParseLanguage(lang)
	if err != nil {
		return q, err
	}
	q.Language = l

	if region == "" {
		region = e.cfg.DefaultRegion
	}
	r, err := panchang.ParseRegion(region)
	if err != nil {
		return q, err
	}
	q.Region = r

	return q, nil
}

func printDay(out io.Writer, d *panchang.PanchangData, tl timeline.Timeline) {
	b := d.BasicDetails
	fmt.Fprintf(out, "%s  %s\n", d.Date, d.Location)
	fmt.Fprintf(out, "Sunrise %s  Sunset %s\n", b.Sunrise, b.Sunset)
	fmt.Fprintf(out, "Tithi %s  Nakshatra %s  Yoga %s  Karana %s\n", b.Tithi, b.Nakshatra, b.Yoga, b.Karana)
	fmt.Fprintf(out, "Month %s  Era %s\n\n", b.Maasam, b.Samvat)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMING\tSTATUS\tTIME")
	for _, list := range [][]panchang.TimingInfo{d.AuspiciousTimings, d.InauspiciousTimings} {
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.NameEn, t.Status, t.Time)
		}
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d timings placed on the timeline", len(tl.Segments))
	if len(tl.Omitted) > 0 {
		labels := make([]string, len(tl.Omitted))
		for i, o := range tl.Omitted {
			labels[i] = o.Label
		}
		fmt.Fprintf(out, "; omitted: %s", strings.Join(labels, ", "))
	}
	fmt.Fprintln(out)

	if d.SpiritualSummary != "" {
		fmt.Fprintf(out, "\n%s\n", d.SpiritualSummary)
	}
}

func highlightMark(h panchang.DayHighlight) string {
	switch h {
	case panchang.HighlightAuspicious:
		return "+"
	case panchang.HighlightInauspicious:
		return "-"
	default:
		return " "
	}
}

// clock formats minutes since midnight as HH:MM. Values past 24:00 are
// shown as-is.
func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
