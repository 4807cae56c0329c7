package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"photobak/internal/app"
	"photobak/internal/config"
	"photobak/internal/photobak"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
func newApp() (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:           "photobak",
	Short:         "Back up profile photos to cloud storage",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Put the VK token in %s and the Yandex Disk token in %s\n",
			cfg.Credentials.TokenFiles["vk"], cfg.Credentials.TokenFiles["yadisk"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"], defaults["base_dir"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		m := &config.Manager{Format: config.FormatFor(defaults["config_path"])}
		return m.Write(os.Stdout, cfg.Redacted())
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup HANDLE...",
	Short: "Back up the profile photos of one or more users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("dest")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		failed := 0
		for _, handle := range args {
			if !backupOne(ctx, a, handle, dest) {
				failed++
			}
			if ctx.Err() != nil {
				break
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d backups failed", failed, len(args))
		}
		return nil
	},
}

// backupOne runs and reports a single backup. It returns false on failure.
func backupOne(ctx context.Context, a *app.App, handle, dest string) bool {
	a.OnProgress(func(done, total int, name string) {
		fmt.Fprintf(os.Stderr, "\r%s: in progress %d/%d (%s)\033[K", handle, done, total, name)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	})
	res, err := a.Backup(ctx, handle, dest)
	switch {
	case errors.Is(err, photobak.ErrIdentityNotFound):
		color.Red("%s: user not found", handle)
		return false
	case errors.Is(err, photobak.ErrConfiguration):
		color.Red("%s: configuration error: %v", handle, err)
		return false
	case err != nil:
		color.Red("%s: backup failed: %v", handle, err)
		return false
	}

	if res.Archived {
		color.Yellow("%s: previous backup moved to %s", handle, res.ArchivePath)
	}
	if res.Outcome == photobak.OutcomeNoPhotos {
		color.Yellow("%s: user %s has no photos, empty manifest written to %s", handle, res.Identity, res.ManifestPath)
		return true
	}
	color.Green("%s: %d photo(s) backed up to %s", handle, len(res.Manifest.Photos), res.Destination)
	return true
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View backup run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No backup runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %-10s  %s  %-8s  %3d photos  %s\n",
				r.ID,
				r.Handle,
				r.Destination,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Status,
				r.Photos,
				duration,
			)
			if r.Error != "" {
				fmt.Printf("     %s\n", r.Error)
			}
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		if err := a.InitKeys(pass); err != nil {
			return err
		}
		color.Green("Encryption keys created")
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt IN OUT",
	Short: "Decrypt a downloaded photo or manifest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer in.Close()

		out, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer out.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if err := a.Decrypt(in, out, pass); err != nil {
			os.Remove(args[1])
			return err
		}
		fmt.Printf("Decrypted %s to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringP("dest", "d", "", "Destination name (default: first configured destination)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(decryptCmd)
}
