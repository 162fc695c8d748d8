package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gb-go/internal/app"
	"gb-go/internal/config"
	"gb-go/internal/gb"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a GBApp for the --root directory.
// The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "list", "copy").
func newApp(cmd *cobra.Command, operation, parameters string) (*app.GBApp, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}

	root, _ := cmd.Flags().GetString("root")
	a, err := app.NewGBApp(cfg, root, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// noGroupData turns gb.ErrNoData into the notice printed when no groups
// have been saved yet. Other errors are returned unchanged.
func noGroupData(w io.Writer, err error) error {
	if errors.Is(err, gb.ErrNoData) {
		fmt.Fprintln(w, "No group information available.")
		return nil
	}
	return err
}

func parseGroupNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid group number %q", s)
	}
	return n, nil
}

var rootCmd = &cobra.Command{
	Use:          "gb",
	Short:        "Split a directory into size-bounded backup groups",
	SilenceUsage: true,
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

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
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

		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:      %s\n", cfg.HostID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Group Size:   %s\n", cfg.Grouping.GroupSize)
		fmt.Printf("State Dir:    %s\n", cfg.Grouping.StateDir)
		fmt.Printf("Backup Dir:   %s\n", cfg.Grouping.BackupDir)
		fmt.Printf("Link Mode:    %s\n", cfg.Filesystem.LinkMode)
		fmt.Printf("Lock Timeout: %s\n", cfg.Grouping.LockTimeout)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:        %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}

		if err := app.SetupKeys(cfg, passphrase); err != nil {
			return err
		}
		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Scan the root and save file groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSize, _ := cmd.Flags().GetString("group-size")

		a, err := newApp(cmd, "list", groupSize)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.List(groupSize)
		if err != nil {
			return err
		}

		if len(result.Oversized) > 0 {
			fmt.Println("Oversized files excluded from groups:")
			for _, f := range result.Oversized {
				fmt.Printf("%s - %s\n", f.RelativePath, gb.FormatGB(f.Size))
			}
		}
		if n := len(result.Warnings); n > 0 {
			fmt.Printf("%d file(s) skipped\n", n)
		}
		fmt.Printf("File groups saved to %s\n", result.PartitionPath)
		return nil
	},
}

// view command
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the saved file groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "view", "")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.View()
		if err != nil {
			return noGroupData(os.Stdout, err)
		}

		for _, s := range summaries {
			fmt.Printf("Group %d: %d files, Total size: %s\n", s.Number, s.FileCount, gb.FormatGB(s.TotalSize))
		}
		return nil
	},
}

// copy command
var copyCmd = &cobra.Command{
	Use:   "copy GROUP",
	Short: "Materialize a group into a destination directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("dest")

		n, err := parseGroupNumber(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "copy", strings.TrimSpace(fmt.Sprintf("group=%d %s", n, dest)))
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Copy(n, dest)
		if err != nil {
			return noGroupData(os.Stdout, err)
		}

		for _, f := range result.Failures {
			fmt.Fprintf(os.Stderr, "Failed: %s: %v\n", f.RelativePath, f.Err)
		}
		if result.StateCopied {
			fmt.Println("File info directory copied.")
		} else {
			fmt.Println("File info directory copy skipped as it already exists.")
		}
		fmt.Printf("Group %d and associated data copied to %s\n", n, result.Destination)
		if len(result.Failures) > 0 {
			return fmt.Errorf("%d file(s) could not be copied", len(result.Failures))
		}
		return nil
	},
}

// name command
var nameCmd = &cobra.Command{
	Use:   "name NAME",
	Short: "Set the backup name written into manifests",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")

		a, err := newApp(cmd, "name", name)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetName(name); err != nil {
			return err
		}
		fmt.Printf("Backup name set to '%s'\n", name)
		return nil
	},
}

// push command
var pushCmd = &cobra.Command{
	Use:   "push GROUP",
	Short: "Upload a group to the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		n, err := parseGroupNumber(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "push", fmt.Sprintf("group=%d encrypt=%t", n, encrypt))
		if err != nil {
			return err
		}
		defer a.Close()

		manifest, err := a.Push(n, encrypt)
		if err != nil {
			return noGroupData(os.Stdout, err)
		}
		fmt.Printf("Pushed group %d: %d files, %s\n", n, len(manifest.Files), humanize.IBytes(uint64(manifest.TotalSize())))
		return nil
	},
}

// pull command
var pullCmd = &cobra.Command{
	Use:   "pull GROUP DEST",
	Short: "Download a group from the vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseGroupNumber(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "pull", fmt.Sprintf("group=%d %s", n, args[1]))
		if err != nil {
			return err
		}
		defer a.Close()

		manifest, err := a.Pull(n, args[1], func() (string, error) {
			return readPassphrase("Passphrase: ")
		})
		if err != nil {
			return err
		}
		fmt.Printf("Pulled group %d (%s): %d files into %s\n", n, manifest.BackupName, len(manifest.Files), args[1])
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history", "")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-10s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log GROUP",
	Short: "View the recorded copies of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseGroupNumber(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "log", "")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.GetCopyLog(n)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Printf("No copies of group %d recorded.\n", n)
			return nil
		}

		for _, r := range records {
			failures := ""
			if r.Failures > 0 {
				failures = fmt.Sprintf("  [%d failed]", r.Failures)
			}
			fmt.Printf("%s  %s  %d files  %s  %s%s\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.BackupName,
				r.FileCount,
				gb.FormatGB(r.TotalSize),
				r.Destination,
				failures,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("root", ".", "Directory to scan and group")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("group-size", "", "Maximum group size: bare number in GB, or e.g. 4.7GB, 700MiB")
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(copyCmd)
	copyCmd.Flags().String("dest", "", "Destination directory (default: <root>/.backup_files/group_N)")
	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().Bool("encrypt", false, "Encrypt files with the configured key pair")
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(logCmd)
}
