package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keyman/internal/ui"
)

func addCmd() *cobra.Command {
	var account, domain, key, description string

	cmd := &cobra.Command{
		Use:     "add",
		Aliases: []string{"new"},
		Short:   "Store a new API key",
		Long:    "Store a new API key. Missing fields are prompted for interactively.",
		Run: func(cmd *cobra.Command, args []string) {
			s := openStore()
			reader := bufio.NewReader(os.Stdin)

			if domain == "" {
				domain = promptField(reader, "domain")
			}
			if domain == "" {
				ui.Warn.Println("  The 'domain' cannot be empty — nothing stored")
				os.Exit(1)
			}
			if account == "" {
				account = promptField(reader, "account")
			}
			if account == "" {
				ui.Warn.Println("  The 'account' cannot be empty — nothing stored")
				os.Exit(1)
			}
			if key == "" {
				key = promptField(reader, "key")
			}
			if key == "" {
				ui.Warn.Println("  The 'key' cannot be empty — nothing stored")
				os.Exit(1)
			}
			if description == "" && !cmd.Flags().Changed("description") {
				description = promptField(reader, "description")
			}

			if err := s.Create(account, domain, key, description); err != nil {
				ui.Bad.Printf("  Failed to store key: %v\n", err)
				os.Exit(1)
			}

			ui.Good.Printf("  %s key for %s @ %s stored in %s\n",
				ui.StatusIcon(true), account, domain, s.Path())
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account the key belongs to")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "API domain the key is for")
	cmd.Flags().StringVarP(&key, "key", "k", "", "The key value")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	return cmd
}

func promptField(reader *bufio.Reader, field string) string {
	fmt.Printf("  %s> ", ui.Brand.Sprintf("[%s]", field))
	value, _ := reader.ReadString('\n')
	return strings.TrimSpace(value)
}
