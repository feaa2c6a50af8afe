package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keyman/internal/keystore"
	"keyman/internal/ui"
)

// protectedFields are managed by the store and can't be set by hand.
var protectedFields = map[string]bool{
	"expired":    true,
	"account":    true,
	"domain":     true,
	"key":        true,
	"created_at": true,
	"updated_at": true,
}

func setCmd() *cobra.Command {
	var account, domain, key string

	cmd := &cobra.Command{
		Use:   "set <field>=<value>",
		Short: "Set or clear an optional field on a stored record",
		Long: "Set or clear an optional field on a stored record.\n" +
			"An empty value clears the field; unknown fields are stored as extras.",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			field, value, err := parseAssignment(args[0])
			if err != nil {
				ui.Warn.Printf("  %v\n", err)
				os.Exit(1)
			}
			if key == "" {
				ui.Warn.Println("  Pass --key to say which record to change")
				os.Exit(1)
			}

			s := openStore()
			rec := matchRecord(s, account, domain, key)
			if rec == nil {
				fmt.Printf("  No record found for account %q and domain %q\n", account, domain)
				os.Exit(1)
			}

			applyField(rec, field, value)
			ok, err := s.Update(rec)
			if err != nil {
				ui.Bad.Printf("  Update failed: %v\n", err)
				os.Exit(1)
			}
			if !ok {
				fmt.Println("  No record matched the given key")
				os.Exit(1)
			}
			ui.Good.Printf("  %s %s updated\n", ui.StatusIcon(true), field)
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "Account of the record to change")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Domain of the record to change")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Key value identifying the record")
	return cmd
}

// parseAssignment splits a field=value argument and rejects protected
// fields up front.
func parseAssignment(arg string) (field, value string, err error) {
	field, value, _ = strings.Cut(arg, "=")
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)
	if field == "" {
		return "", "", fmt.Errorf("could not parse %q as <field>=<value>", arg)
	}
	if protectedFields[field] {
		return "", "", fmt.Errorf("the %q field is managed by keyman and cannot be set", field)
	}
	return field, value, nil
}

// applyField sets or clears one optional field on a record copy. Core
// optional fields are cleared to empty; extras are removed entirely.
func applyField(rec *keystore.Record, field, value string) {
	switch field {
	case "organization":
		rec.Organization = value
	case "mnemonic":
		rec.Mnemonic = value
	case "description":
		rec.Description = value
	default:
		if value == "" {
			delete(rec.Extra, field)
			return
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[field] = value
	}
}

// matchRecord returns a copy of the first stored record matching the
// filters and key, expired ones included.
func matchRecord(s *keystore.Store, account, domain, key string) *keystore.Record {
	for _, rec := range s.Find(account, domain, true) {
		if rec.Key == key {
			return rec
		}
	}
	return nil
}
