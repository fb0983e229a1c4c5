// Command dosage runs the return date calculator from the terminal.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/internal/dosage"
	"github.com/medflow/medflow-dispensary/pkg/config"
	"github.com/medflow/medflow-dispensary/pkg/i18n"
)

const dateLayout = "02/01/2006"

type options struct {
	catalogPath string
	timeZone    string
	lang        string
}

func main() {
	if err := newRootCmd(os.Stdout, time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, now func() time.Time) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "dosage",
		Short:        "Estimate how long a dispensed supply lasts",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "medication catalog YAML (defaults to the built-in catalog)")
	root.PersistentFlags().StringVar(&opts.timeZone, "tz", "America/Sao_Paulo", "time zone used for today")
	root.PersistentFlags().StringVar(&opts.lang, "lang", i18n.DefaultLocale, "language of the output")

	root.AddCommand(newListCmd(out, opts), newCalcCmd(out, opts, now))
	return root
}

func newListCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the medications in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := dosage.LoadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			l := i18n.NewLocalizer(opts.lang)
			for _, p := range catalog.Profiles() {
				fmt.Fprintf(out, "%s\t%s %s\t%s\n",
					p.Name,
					domain.FormatQuantity(p.DosesPerContainer),
					p.DoseUnit,
					l.T("schedule."+string(p.Schedule)))
			}
			return nil
		},
	}
}

func newCalcCmd(out io.Writer, opts *options, now func() time.Time) *cobra.Command {
	var (
		medication string
		date       string
		containers float64
		dose       float64
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute the days covered and the return date",
		Example: `  dosage calc --medication "Clonazepam 2,5mg/mL" --containers 2 --dose 10
  dosage calc --medication "Fenobarbital 40 mg/mL" --date 07/05/2024 --dose 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := dosage.LoadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}
			p, ok := catalog.Lookup(medication)
			if !ok {
				return fmt.Errorf("unknown medication %q, see 'dosage list'", medication)
			}

			loc := (&config.DashboardConfig{TimeZone: opts.timeZone}).Location()
			delivery := dosage.NewRow(now().In(loc)).DeliveryDate
			if date = strings.TrimSpace(date); date != "" {
				d, err := time.ParseInLocation(dateLayout, date, loc)
				if err != nil {
					return fmt.Errorf("invalid date %q, expected dd/mm/yyyy", date)
				}
				delivery = &d
			}

			row := dosage.Recalculate(dosage.Row{
				Medication:   &p,
				DeliveryDate: delivery,
				Containers:   containers,
				DailyDose:    dose,
			}.Clamp())
			if row.DaysCovered == nil {
				return fmt.Errorf("the daily dose must be greater than zero")
			}

			l := i18n.NewLocalizer(opts.lang)
			fmt.Fprintf(out, "%s: %s\n", l.T("calculator.days"), dosage.FormatDays(row.DaysCovered))
			fmt.Fprintf(out, "%s: %s\n", l.T("calculator.return_date"), dosage.FormatDate(row.ReturnDate))
			if row.Advisory != nil {
				fmt.Fprintln(out, l.T(row.Advisory.MessageKey))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&medication, "medication", "m", "", "medication name as listed by 'dosage list'")
	cmd.Flags().StringVar(&date, "date", "", "delivery date as dd/mm/yyyy (defaults to today)")
	cmd.Flags().Float64VarP(&containers, "containers", "c", 1, "number of containers dispensed")
	cmd.Flags().Float64VarP(&dose, "dose", "d", 1, "daily dose in drops, or mL for liquid medications")
	_ = cmd.MarkFlagRequired("medication")

	return cmd
}
