package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"keyman/internal/config"
	"keyman/internal/keystore"
	"keyman/internal/ui"
)

var version = "1.2.0"

var (
	storeDir  string
	storeFile string
)

var rootCmd = &cobra.Command{
	Use:   "keyman",
	Short: "keyman — the local API key manager",
	Long: ui.Brand.Sprint(ui.Key+" keyman") + " — keep API keys out of your code\n" +
		ui.Subtle.Sprint("Store, find, update, and expire keys in a local file"),
	Version: version + " " + ui.Key,
}

func init() {
	rootCmd.SetVersionTemplate("keyman {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&storeDir, "dir", "", "Directory holding the key file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storeFile, "file", "", "Key file name (overrides config)")

	rootCmd.AddCommand(
		addCmd(),
		listCmd(),
		findCmd(),
		setCmd(),
		expireCmd(),
		shellCmd(),
		doctorCmd(),
	)
}

// storeLocation resolves the key file location: flags beat config,
// config beats the built-in default.
func storeLocation() (dir, fname string) {
	cfg := config.Load()
	dir, fname = cfg.StoreDir(), cfg.StoreFile()
	if storeDir != "" {
		dir = storeDir
	}
	if storeFile != "" {
		fname = storeFile
	}
	return dir, fname
}

// openStore opens the key store or exits. A missing key file is fine;
// a corrupt one is not.
func openStore() *keystore.Store {
	s, err := keystore.Open(storeLocation())
	if err != nil {
		ui.Bad.Printf("keyman: %v\n", err)
		os.Exit(1)
	}
	return s
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
