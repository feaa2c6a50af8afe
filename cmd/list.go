package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyman/internal/keystore"
	"keyman/internal/ui"
)

func listCmd() *cobra.Command {
	var account, domain string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored keys (values never shown)",
		Run: func(cmd *cobra.Command, args []string) {
			s := openStore()

			ui.Banner("stored API keys")
			if s.Status() == keystore.StatusNoStore {
				fmt.Println("  No key file yet.")
				fmt.Println("  Run `keyman add` to store your first key")
				return
			}

			entries := s.List(account, domain)
			if len(entries) == 0 {
				fmt.Println("  No keys in the key file.")
				return
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				active := "true"
				if e.Expired {
					active = "false"
				}
				rows = append(rows, []string{active, e.Account, e.Domain, e.Description})
			}
			ui.Table([]string{"ACTIVE", "ACCOUNT", "DOMAIN", "DESCRIPTION"}, rows)

			fmt.Printf("\n  %d keys stored\n", len(entries))
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Only this account's keys")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Only this domain's keys")
	return cmd
}
