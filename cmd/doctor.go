package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keyman/internal/config"
	"keyman/internal/keystore"
	"keyman/internal/parallel"
	"keyman/internal/ui"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"dr"},
		Short:   "Health check — verify config, key file, and indices",
		Run: func(cmd *cobra.Command, args []string) {
			dir, fname := storeLocation()

			ui.Banner("health check")

			checks := []parallel.Check{
				{Name: "config", Fn: func() (string, error) {
					cfg := config.Load()
					return fmt.Sprintf("key file at %s/%s", cfg.StoreDir(), cfg.StoreFile()), nil
				}},
				{Name: "key directory", Fn: func() (string, error) {
					info, err := os.Stat(dir)
					if os.IsNotExist(err) {
						return "not created yet (first save creates it)", nil
					}
					if err != nil {
						return "", err
					}
					if !info.IsDir() {
						return "", fmt.Errorf("%s exists but is not a directory", dir)
					}
					return dir, nil
				}},
				{Name: "key file", Fn: func() (string, error) {
					s, err := keystore.Open(dir, fname)
					if err != nil {
						return "", err
					}
					if s.Status() == keystore.StatusNoStore {
						return "no key file yet", nil
					}
					return fmt.Sprintf("%d records", s.Count()), nil
				}},
				{Name: "index consistency", Fn: func() (string, error) {
					s, err := keystore.Open(dir, fname)
					if err != nil {
						return "", err
					}
					if err := s.Verify(); err != nil {
						return "", err
					}
					return "both indices agree", nil
				}},
			}

			healthy := 0
			for _, r := range parallel.Run(checks, 4) {
				if r.OK {
					fmt.Printf("  %s %s: %s\n", ui.StatusIcon(true), r.Name, r.Detail)
					healthy++
				} else {
					fmt.Printf("  %s %s: %v\n", ui.StatusIcon(false), r.Name, r.Err)
				}
			}

			fmt.Printf("\n  %d/%d checks healthy\n", healthy, len(checks))
			if healthy < len(checks) {
				os.Exit(1)
			}
		},
	}
}
