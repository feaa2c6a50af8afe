package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keyman/internal/keystore"
	"keyman/internal/ui"
)

func expireCmd() *cobra.Command {
	var account, domain, key string

	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Mark a stored key as expired",
		Long: "Mark a stored key as expired. The record stays in the key file\n" +
			"but stops showing up in normal lookups.",
		Run: func(cmd *cobra.Command, args []string) {
			s := openStore()

			ok, err := s.Expire(&keystore.Record{
				Account: account,
				Domain:  domain,
				Key:     key,
			})
			if err != nil {
				ui.Bad.Printf("  Expire failed: %v\n", err)
				os.Exit(1)
			}
			if !ok {
				fmt.Println("  No record matched — nothing expired")
				os.Exit(1)
			}
			ui.Good.Printf("  %s key for %s @ %s expired\n", ui.StatusIcon(true), account, domain)
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account of the key to expire")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Domain of the key to expire")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Key value to expire")
	return cmd
}
