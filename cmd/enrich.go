package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-merge-cli/internal/customer"
	"github.com/sells-group/crm-merge-cli/internal/enrich"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <contacts.xlsx>",
	Short: "Fill missing customer emails and phones from a contact export",
	Long:  "Matches external contacts against customers missing an email, by normalized phone first and normalized name second, and fills the gaps. Customers that already have an email collect extra phone numbers from contacts sharing it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sheet, _ := cmd.Flags().GetString("sheet")
		skipRows, _ := cmd.Flags().GetInt("skip-rows")

		if sheet == "" {
			sheet = cfg.Enrich.SheetName
		}
		if !cmd.Flags().Changed("skip-rows") {
			skipRows = cfg.Enrich.SkipRows
		}

		contacts, err := enrich.ReadContactsXLSX(args[0], enrich.XLSXOptions{
			SheetName: sheet,
			SkipRows:  skipRows,
		})
		if err != nil {
			return err
		}

		pool, err := initPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		matcher := enrich.NewMatcher(customer.NewPostgresStore(pool), customer.PhoneRules{
			CountryCode:    cfg.Phone.CountryCode,
			NationalLength: cfg.Phone.NationalLength,
		})

		res, err := matcher.Run(ctx, contacts)
		if err != nil {
			return err
		}

		fmt.Printf("Contacts read:   %d\n", res.Contacts)
		fmt.Printf("Emails filled:   %d\n", res.EmailsFilled)
		fmt.Printf("Phones added:    %d\n", res.PhonesAdded)
		fmt.Printf("Unmatched:       %d\n", res.Unmatched)
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("sheet", "", "sheet name to read (default: first sheet)")
	enrichCmd.Flags().Int("skip-rows", 1, "header rows to skip")
	rootCmd.AddCommand(enrichCmd)
}
