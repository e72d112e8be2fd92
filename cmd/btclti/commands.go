package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/export"
	"github.com/fineflow77/btclti/internal/fit"
	"github.com/fineflow77/btclti/internal/position"
	"github.com/fineflow77/btclti/internal/powerlaw"
	"github.com/fineflow77/btclti/internal/scenario"
	"github.com/fineflow77/btclti/internal/simulation"
)

func variantFlag() cli.Flag {
	return &cli.StringFlag{Name: "variant", Value: string(domain.VariantStandard), Usage: "price model variant: standard or conservative"}
}

func asOfFlag() cli.Flag {
	return &cli.IntFlag{Name: "as-of", Usage: "first simulated year (default: current year)"}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{Name: "xlsx", Usage: "also write the tables to this XLSX file"},
		&cli.PathFlag{Name: "pdf", Usage: "also write the tables to this PDF file"},
	}
}

func (r *runner) projectCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "print yearly median and support prices",
		Flags: append([]cli.Flag{
			variantFlag(),
			&cli.IntFlag{Name: "from", Usage: "first year (default: current year)"},
			&cli.IntFlag{Name: "to", Value: simulation.TargetYear, Usage: "last year"},
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			variant, err := domain.ParseVariant(c.String("variant"))
			if err != nil {
				return err
			}
			from := c.Int("from")
			if from == 0 {
				from = time.Now().Year()
			}
			m, err := powerlaw.For(variant)
			if err != nil {
				return err
			}
			points, err := m.ProjectYears(from, c.Int("to"))
			if err != nil {
				return err
			}
			return r.writeTables(c, "Projection", export.ProjectionTable(points, variant))
		},
	}
}

func (r *runner) positionCommand() *cli.Command {
	return &cli.Command{
		Name:  "position",
		Usage: "assess the latest spot price against today's model prices",
		Flags: []cli.Flag{
			variantFlag(),
			&cli.Float64Flag{Name: "price", Usage: "USD price to assess instead of the latest quote"},
		},
		Action: func(c *cli.Context) error {
			variant, err := domain.ParseVariant(c.String("variant"))
			if err != nil {
				return err
			}

			var report position.Report
			if c.IsSet("price") {
				now := time.Now().UTC()
				a, err := position.AssessAt(c.Float64("price"), now, variant)
				if err != nil {
					return err
				}
				report = position.Report{Date: now, Variant: variant, Assessment: a}
			} else {
				market, cleanup, err := r.openMarket(c.Context)
				if err != nil {
					return err
				}
				defer cleanup()
				q, err := market.LatestQuote(c.Context)
				if err != nil {
					return fmt.Errorf("loading latest quote: %w", err)
				}
				if report, err = position.ReportQuote(q, variant); err != nil {
					return err
				}
			}
			export.WriteConsole(c.App.Writer, export.PositionTable(report))
			return nil
		},
	}
}

func (r *runner) fitCommand() *cli.Command {
	return &cli.Command{
		Name:  "fit",
		Usage: "compute R² of the log-log fit over cached daily history",
		Action: func(c *cli.Context) error {
			market, cleanup, err := r.openMarket(c.Context)
			if err != nil {
				return err
			}
			defer cleanup()

			history, err := market.History(c.Context)
			if err != nil {
				return fmt.Errorf("loading price history: %w", err)
			}
			r2, ok := fit.RSquared(history)
			if !ok {
				return errors.New("no price history available")
			}
			_, err = fmt.Fprintf(c.App.Writer, "R² = %.4f over %d daily closes\n", r2, len(history))
			return err
		},
	}
}

func (r *runner) accumulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "accumulate",
		Usage: "simulate monthly purchases and print the yearly ledger",
		Flags: append([]cli.Flag{
			&cli.PathFlag{Name: "scenario", Usage: "YAML scenario file; its accumulation section replaces the input flags"},
			&cli.StringFlag{Name: "initial-type", Value: string(simulation.InitialBTC), Usage: "btc or fiat"},
			&cli.StringFlag{Name: "initial-btc", Value: "0", Usage: "BTC already held"},
			&cli.StringFlag{Name: "initial-fiat", Usage: "local currency already invested"},
			&cli.StringFlag{Name: "monthly", Usage: "monthly contribution in local currency"},
			&cli.StringFlag{Name: "years", Usage: "contribution years (1-50)"},
			variantFlag(),
			&cli.StringFlag{Name: "exchange-rate", Usage: "local currency per USD (default: from the latest quote)"},
			&cli.StringFlag{Name: "inflation", Value: "0", Usage: "annual inflation in percent"},
			asOfFlag(),
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			in := simulation.AccumulationInput{
				InitialType:         simulation.InitialKind(c.String("initial-type")),
				InitialBTC:          c.String("initial-btc"),
				InitialFiat:         c.String("initial-fiat"),
				MonthlyContribution: c.String("monthly"),
				Years:               c.String("years"),
				Variant:             c.String("variant"),
				ExchangeRate:        c.String("exchange-rate"),
				InflationRate:       c.String("inflation"),
			}
			asOf, currency := asOfYear(c.Int("as-of")), r.cfg.LocalCurrency
			if path := c.Path("scenario"); path != "" {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				if sc.Accumulation == nil {
					return fmt.Errorf("scenario %s has no accumulation section", path)
				}
				in, asOf, currency = *sc.Accumulation, sc.Year(asOf), r.currency(sc)
			}

			rate, err := r.exchangeRate(c.Context, in.ExchangeRate, currency)
			if err != nil {
				return err
			}
			in.ExchangeRate = rate

			records, err := simulation.RunAccumulation(in, asOf)
			if err != nil {
				logSimulationFailure("accumulation", err)
				return err
			}
			return r.writeTables(c, "Accumulation", export.AccumulationTable(records, currency))
		},
	}
}

func (r *runner) decumulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "decumulate",
		Usage: "simulate yearly withdrawals and print the ledger",
		Flags: append([]cli.Flag{
			&cli.PathFlag{Name: "scenario", Usage: "YAML scenario file; its decumulation section replaces the input flags"},
			&cli.StringFlag{Name: "btc", Usage: "BTC held at the start"},
			&cli.StringFlag{Name: "start-year", Usage: "first withdrawal year"},
			variantFlag(),
			&cli.StringFlag{Name: "policy", Value: string(simulation.PolicyPercentage), Usage: "fixed or percentage"},
			&cli.StringFlag{Name: "amount", Usage: "monthly after-tax amount in local currency (fixed policy)"},
			&cli.StringFlag{Name: "withdrawal-rate", Usage: "yearly withdrawal in percent of holdings (percentage policy)"},
			&cli.StringFlag{Name: "second-year", Usage: "year the second policy takes over (optional)"},
			&cli.StringFlag{Name: "second-policy", Value: string(simulation.PolicyFixed), Usage: "fixed or percentage"},
			&cli.StringFlag{Name: "second-amount", Usage: "monthly amount of the second policy"},
			&cli.StringFlag{Name: "second-rate", Usage: "yearly rate of the second policy"},
			&cli.StringFlag{Name: "tax", Value: "20", Usage: "tax on withdrawals in percent"},
			&cli.StringFlag{Name: "exchange-rate", Usage: "local currency per USD (default: from the latest quote)"},
			&cli.StringFlag{Name: "inflation", Value: "0", Usage: "annual inflation in percent"},
			asOfFlag(),
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			in := decumulationFromFlags(c)
			asOf, currency := asOfYear(c.Int("as-of")), r.cfg.LocalCurrency
			if path := c.Path("scenario"); path != "" {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				if sc.Decumulation == nil {
					return fmt.Errorf("scenario %s has no decumulation section", path)
				}
				in, asOf, currency = *sc.Decumulation, sc.Year(asOf), r.currency(sc)
			}

			rate, err := r.exchangeRate(c.Context, in.ExchangeRate, currency)
			if err != nil {
				return err
			}
			in.ExchangeRate = rate

			records, err := simulation.RunDecumulation(in, asOf)
			if err != nil {
				logSimulationFailure("decumulation", err)
				return err
			}
			return r.writeTables(c, "Decumulation", export.DecumulationTable(records, currency))
		},
	}
}

func decumulationFromFlags(c *cli.Context) simulation.DecumulationInput {
	in := simulation.DecumulationInput{
		InitialBTC: c.String("btc"),
		StartYear:  c.String("start-year"),
		Variant:    c.String("variant"),
		Policy: simulation.PolicyInput{
			Type:   simulation.PolicyKind(c.String("policy")),
			Amount: c.String("amount"),
			Rate:   c.String("withdrawal-rate"),
		},
		TaxRate:       c.String("tax"),
		ExchangeRate:  c.String("exchange-rate"),
		InflationRate: c.String("inflation"),
	}
	if c.IsSet("second-year") {
		in.SecondPhase = &simulation.SecondPhaseInput{
			Year: c.String("second-year"),
			Policy: simulation.PolicyInput{
				Type:   simulation.PolicyKind(c.String("second-policy")),
				Amount: c.String("second-amount"),
				Rate:   c.String("second-rate"),
			},
		}
	}
	return in
}

func (r *runner) exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "run a scenario file and export the projection and ledgers",
		Flags: append([]cli.Flag{
			&cli.PathFlag{Name: "scenario", Required: true, Usage: "YAML scenario file"},
			&cli.BoolFlag{Name: "sheets", Usage: "also write to the configured Google spreadsheet"},
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			if c.Bool("sheets") && !r.cfg.SheetsEnabled() {
				return errors.New("GOOGLE_SHEET_ID and GOOGLE_CREDENTIALS_JSON are required for --sheets")
			}
			sc, err := scenario.Load(c.Path("scenario"))
			if err != nil {
				return err
			}
			tables, err := r.scenarioTables(c.Context, sc)
			if err != nil {
				return err
			}

			title := sc.Name
			if title == "" {
				title = "Scenario"
			}
			if c.Bool("sheets") {
				w, err := export.NewSheetsWriter(c.Context, r.cfg.GoogleSheetID, r.cfg.GoogleCredentialsJSON)
				if err != nil {
					return err
				}
				if err := w.Write(c.Context, tables...); err != nil {
					return fmt.Errorf("writing google sheets: %w", err)
				}
				slog.Info("exported to google sheets", "sheet", r.cfg.GoogleSheetID, "tables", len(tables))
			}
			return r.writeTables(c, title, tables...)
		},
	}
}

// scenarioTables runs every section of sc and lays out the results, preceded by the
// model projection over the same horizon.
func (r *runner) scenarioTables(ctx context.Context, sc scenario.Scenario) ([]export.Table, error) {
	asOf := sc.Year(time.Now().Year())
	currency := r.currency(sc)

	var tables []export.Table
	variant, err := domain.ParseVariant(scenarioVariant(sc))
	if err != nil {
		return nil, err
	}
	m, err := powerlaw.For(variant)
	if err != nil {
		return nil, err
	}
	points, err := m.ProjectYears(asOf, max(asOf, simulation.TargetYear))
	if err != nil {
		return nil, err
	}
	tables = append(tables, export.ProjectionTable(points, variant))

	if in := sc.Accumulation; in != nil {
		acc := *in
		if acc.ExchangeRate, err = r.exchangeRate(ctx, acc.ExchangeRate, currency); err != nil {
			return nil, err
		}
		records, err := simulation.RunAccumulation(acc, asOf)
		if err != nil {
			logSimulationFailure("accumulation", err)
			return nil, fmt.Errorf("accumulation: %w", err)
		}
		tables = append(tables, export.AccumulationTable(records, currency))
	}
	if in := sc.Decumulation; in != nil {
		dec := *in
		if dec.ExchangeRate, err = r.exchangeRate(ctx, dec.ExchangeRate, currency); err != nil {
			return nil, err
		}
		records, err := simulation.RunDecumulation(dec, asOf)
		if err != nil {
			logSimulationFailure("decumulation", err)
			return nil, fmt.Errorf("decumulation: %w", err)
		}
		tables = append(tables, export.DecumulationTable(records, currency))
	}
	return tables, nil
}

// scenarioVariant picks the variant of the first section present.
func scenarioVariant(sc scenario.Scenario) string {
	switch {
	case sc.Accumulation != nil:
		return sc.Accumulation.Variant
	case sc.Decumulation != nil:
		return sc.Decumulation.Variant
	}
	return ""
}

// currency is the scenario's currency, or the configured one when the scenario names none.
func (r *runner) currency(sc scenario.Scenario) string {
	if sc.Currency != "" {
		return sc.Currency
	}
	return r.cfg.LocalCurrency
}

// exchangeRate returns raw unchanged when given, otherwise the rate implied by the latest
// spot quote. The quote is only usable when it is priced in currency.
func (r *runner) exchangeRate(ctx context.Context, raw, currency string) (string, error) {
	if raw != "" {
		return raw, nil
	}
	market, cleanup, err := r.openMarket(ctx)
	if err != nil {
		return "", err
	}
	defer cleanup()

	if !strings.EqualFold(currency, market.Currency()) {
		return "", fmt.Errorf("quotes are fetched in %s but the scenario uses %s; set exchangeRate explicitly",
			market.Currency(), currency)
	}

	q, err := market.LatestQuote(ctx)
	if err != nil {
		return "", fmt.Errorf("no exchange rate given and no quote available: %w", err)
	}
	rate := q.ExchangeRate()
	if rate.IsZero() {
		return "", errors.New("latest quote has no USD price")
	}
	slog.Info("using exchange rate from latest quote", "currency", q.Currency, "rate", rate.StringFixed(4))
	return rate.String(), nil
}

// writeTables prints every table and writes the optional XLSX and PDF files.
func (r *runner) writeTables(c *cli.Context, title string, tables ...export.Table) error {
	for _, t := range tables {
		export.WriteConsole(c.App.Writer, t)
	}
	if path := c.Path("xlsx"); path != "" {
		if err := export.WriteXLSX(path, tables...); err != nil {
			return err
		}
		slog.Info("wrote xlsx", "path", path)
	}
	if path := c.Path("pdf"); path != "" {
		if err := export.WritePDF(path, title, tables...); err != nil {
			return err
		}
		slog.Info("wrote pdf", "path", path)
	}
	return nil
}

func asOfYear(flag int) int {
	if flag != 0 {
		return flag
	}
	return time.Now().Year()
}

func logSimulationFailure(kind string, err error) {
	var ce *simulation.ComputationError
	if errors.As(err, &ce) {
		slog.Warn("simulation failed", "kind", kind, "year", ce.Year, "error", err)
		return
	}
	slog.Warn("simulation rejected", "kind", kind, "error", err)
}
