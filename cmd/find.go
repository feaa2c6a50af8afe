package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keyman/internal/ui"
)

func findCmd() *cobra.Command {
	var (
		account, domain string
		expired, show   bool
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find key records by account and/or domain",
		Run: func(cmd *cobra.Command, args []string) {
			if account == "" && domain == "" {
				ui.Warn.Println("  Give at least one of --account or --domain")
				os.Exit(1)
			}
			s := openStore()

			recs := s.Find(account, domain, expired)
			if len(recs) == 0 {
				fmt.Printf("  No records found for account %q and domain %q\n", account, domain)
				return
			}

			fmt.Printf("  Found %d record(s)\n", len(recs))
			for _, rec := range recs {
				if !show {
					rec.Key = ui.Mask(rec.Key)
				}
				out, err := json.MarshalIndent(rec, "  ", "    ")
				if err != nil {
					ui.Bad.Printf("  Failed to render record: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("  %s\n", out)
			}
			if !show {
				fmt.Println()
				ui.Subtle.Println("  Key values are masked; pass --show to print them")
			}
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account to search for")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Domain to search for")
	cmd.Flags().BoolVar(&expired, "expired", false, "Include expired keys")
	cmd.Flags().BoolVar(&show, "show", false, "Print key values unmasked")
	return cmd
}
