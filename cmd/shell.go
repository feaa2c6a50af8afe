package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keyman/internal/keystore"
)

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive key manager shell",
		Long: "An interactive shell to view, add, update, and expire keys.\n" +
			"Use `find` to pick an active record, then `set` and `expire` act on it.",
		Run: func(cmd *cobra.Command, args []string) {
			runShell(openStore(), os.Stdin, os.Stdout)
		},
	}
}

// runShell drives the interactive loop. It takes its reader and
// writer so tests can script a session.
func runShell(s *keystore.Store, in io.Reader, out io.Writer) {
	if s.Status() == keystore.StatusNoStore {
		fmt.Fprintln(out, "The key file was missing.")
		fmt.Fprintln(out, "Are you initializing a new key file?")
	} else {
		printEntries(out, s.List("", ""))
	}

	// set after a successful find
	var active *keystore.Record

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nkeyman > ")
		if !scanner.Scan() {
			return
		}
		command := strings.TrimSpace(scanner.Text())
		if command == "" || command == "q" || command == "quit" {
			return
		}

		switch {
		case command == "?" || command == "h" || command == "help":
			printShellHelp(out)

		case command == "l" || command == "list":
			printEntries(out, s.List("", ""))

		case command == "n" || command == "new":
			shellCreate(out, scanner, s)

		case command == "a" || command == "active":
			if active == nil {
				fmt.Fprintln(out, "There is no active record.")
				fmt.Fprintln(out, "Use the 'find' command to pick one.")
				continue
			}
			fmt.Fprintln(out, "The current active record is:")
			printRecord(out, active)

		case command == "expire":
			if active == nil {
				fmt.Fprintln(out, "There is no active record.")
				fmt.Fprintln(out, "Use the 'find' command to pick one.")
				continue
			}
			ok, err := s.Expire(active)
			switch {
			case err != nil:
				fmt.Fprintf(out, "Expire failed: %v\n", err)
			case ok:
				active.Expired = true
				fmt.Fprintln(out, "Record expired. Check by listing key records.")
			default:
				fmt.Fprintln(out, "No stored record matched the active one.")
			}

		case strings.HasPrefix(command, "s ") || strings.HasPrefix(command, "set "):
			_, rest, _ := strings.Cut(command, " ")
			if active == nil {
				fmt.Fprintln(out, "There is no active record.")
				fmt.Fprintln(out, "Use the 'find' command to pick one.")
				continue
			}
			shellSet(out, s, active, rest)

		case strings.HasPrefix(command, "f ") || strings.HasPrefix(command, "find "):
			_, rest, _ := strings.Cut(command, " ")
			if rec := shellFind(out, s, rest); rec != nil {
				active = rec
			}

		default:
			fmt.Fprintln(out, "Huh? ... try ? or help to get some help.")
		}
	}
}

func printShellHelp(out io.Writer) {
	fmt.Fprint(out, `
?, h, help
	Get this help message.
l, list
	List a brief version of the stored keys.
n, new
	Interactive creation of a new key.
find d = <domain> a = <account>
	Find a key record and make it the active record.
a, active
	Show the full active record.
s, set <field> = <value>
	Set (or clear) an optional field on the active record.
expire
	Expire the key of the active record.
q, quit
	Quit this shell.
`)
}

func printEntries(out io.Writer, entries []keystore.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Looks like there are no keys in the key file.")
		return
	}
	fmt.Fprintln(out, "Here are the keys in the key file:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "ACTIVE | %-25s | DOMAIN\n", "ACCOUNT")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, e := range entries {
		fmt.Fprintf(out, "%-6t | %-25s | %s\n", !e.Expired, e.Account, e.Domain)
	}
}

func printRecord(out io.Writer, rec *keystore.Record) {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		fmt.Fprintf(out, "could not render record: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s\n", data)
}

func shellCreate(out io.Writer, scanner *bufio.Scanner, s *keystore.Store) {
	fmt.Fprintln(out, "A new key needs a domain, an account, and the key itself.")
	fmt.Fprintln(out, "The description is optional.")

	domain := shellPrompt(out, scanner, "domain")
	if domain == "" {
		fmt.Fprintln(out, "The 'domain' cannot be empty. Creation aborted.")
		return
	}
	account := shellPrompt(out, scanner, "account")
	if account == "" {
		fmt.Fprintln(out, "The 'account' cannot be empty. Creation aborted.")
		return
	}
	key := shellPrompt(out, scanner, "key")
	if key == "" {
		fmt.Fprintln(out, "The 'key' cannot be empty. Creation aborted.")
		return
	}
	description := shellPrompt(out, scanner, "description")

	if err := s.Create(account, domain, key, description); err != nil {
		fmt.Fprintf(out, "Creation failed: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Key stored. Check by listing key records.")
	fmt.Fprintln(out, "Use the 'set' command to add other optional fields.")
}

func shellPrompt(out io.Writer, scanner *bufio.Scanner, field string) string {
	fmt.Fprintf(out, "keyman %15s> ", "['"+field+"']")
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func shellSet(out io.Writer, s *keystore.Store, active *keystore.Record, params string) {
	field, value, err := parseAssignment(params)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	applyField(active, field, value)
	ok, err := s.Update(active)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Update failed: %v\n", err)
	case ok:
		fmt.Fprintln(out, "Record updated. Check by listing key records.")
	default:
		fmt.Fprintln(out, "No stored record matched the active one.")
	}
}

// shellFind parses loose "d = <domain> a = <account>" parameters, runs
// the lookup, and returns the first match as the new active record.
func shellFind(out io.Writer, s *keystore.Store, params string) *keystore.Record {
	var domain, account string
	var wantDomain, wantAccount bool

	var terms []string
	for _, p := range strings.Fields(params) {
		terms = append(terms, strings.Split(p, "=")...)
	}
	for _, term := range terms {
		if term == "" || term == "=" {
			continue
		}
		if wantDomain {
			domain, wantDomain = term, false
			continue
		}
		if wantAccount {
			account, wantAccount = term, false
			continue
		}
		switch term[0] {
		case 'd':
			wantDomain = true
		case 'a', 'u':
			wantAccount = true
		}
	}

	recs := s.Find(account, domain, false)
	if len(recs) == 0 {
		fmt.Fprintf(out, "No records were found for domain '%s' and account '%s'\n", domain, account)
		return nil
	}
	fmt.Fprintf(out, "Found %d record(s) that met the conditions.\n", len(recs))
	fmt.Fprintln(out, "Working with the active record:")
	printRecord(out, recs[0])
	return recs[0]
}
