package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"randview/internal/config"
	"randview/internal/indexer"
	"randview/internal/ledger"
	"randview/internal/scan"
	"randview/internal/service"
	"randview/internal/trash"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/maruel/natural"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFlag  string
	backendFlag string
	dbPathFlag  string
	forceFlag   bool
	svc         *service.Service
	cfg         config.Config
)

func cliLogger(msg string) {
	log.Printf("[randview-cli] %s", msg)
}

// ServiceFactory opens the ledger described by cfg and builds the service
// the commands run against.
type ServiceFactory func(cfg config.Config, logger ledger.LoggerFunc) (*service.Service, error)

// loadConfig reads the config file (or the default one), applies the
// environment and then the command-line overrides.
func loadConfig() (config.Config, error) {
	path := configFlag
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), err
		}
		path = p
	}
	c, err := config.LoadWithEnv(path)
	if err != nil {
		return c, err
	}
	if backendFlag != "" {
		if _, err := ledger.ParseBackend(backendFlag); err != nil {
			return c, err
		}
		c.Ledger.Backend = backendFlag
	}
	if dbPathFlag != "" {
		c.Ledger.Path = dbPathFlag
	}
	return c, nil
}

// NewRootCmd creates the root command for the CLI application.
// newService opens the ledger and builds the service; tests inject their own.
func NewRootCmd(newService ServiceFactory) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "randview-cli",
		Short: "randview CLI - index folders and draw random unviewed images",
		Long: `randview-cli works on the same ledger as the randview viewer.

It indexes folder trees, draws random images that were not viewed yet and
maintains the ledger. A .env file in the working directory is loaded first.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			var err error
			cfg, err = loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			svc, err = newService(cfg, cliLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize service: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if svc != nil {
				svc.Ledger.Close()
				svc = nil
			}
		},
	}

	rootCmd.AddCommand(
		newScanCmd(),
		newNextCmd(),
		newStatsCmd(),
		newResetCmd(),
		newClearCmd(),
		newListCmd(),
		newCleanCmd(),
		newInfoCmd(),
		newDeleteCmd(),
	)

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Ledger backend: bolt or sqlite")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "dbpath", "", "Path to the ledger file")

	return rootCmd
}

func newScanCmd() *cobra.Command {
	var rescan, progress bool
	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Index the images under a directory",
		Long: `Index every image under the directory into the ledger.

Without --rescan the ledger is cleared first when the last image served is not
inside the directory, the same as choosing a new folder in the viewer.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.LastDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no directory given and none configured")
			}

			var s *indexer.Scan
			if rescan {
				var err error
				if s, err = svc.Rescan(cmd.Context(), dir); err != nil {
					return err
				}
			} else {
				var cleared bool
				var err error
				if s, cleared, err = svc.SelectFolder(cmd.Context(), dir); err != nil {
					return err
				}
				if cleared {
					cmd.Println("Ledger cleared for a new folder.")
				}
			}

			if progress {
				var last time.Time
				for p := range s.Progress() {
					if p.Current == p.Total || time.Since(last) > 250*time.Millisecond {
						last = time.Now()
						fmt.Fprintf(cmd.ErrOrStderr(), "\rIndexing %d/%d", p.Current, p.Total)
					}
				}
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			res := s.Wait()
			if res.Err != nil {
				return fmt.Errorf("scan of %s failed: %w", res.Root, res.Err)
			}
			cmd.Printf("Indexed %d images under %s (%d new).\n", res.Total, res.Root, res.Inserted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rescan, "rescan", false, "Add new files without applying the folder-change policy")
	cmd.Flags().BoolVar(&progress, "progress", false, "Report progress on stderr")
	return cmd
}

func newNextCmd() *cobra.Command {
	var count int
	var noCheck bool
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Draw random unviewed images and mark them viewed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			show := svc.CheckImage
			if noCheck {
				show = nil
			}
			for i := 0; i < count; i++ {
				served, err := svc.NextImage(show)
				if served.Evicted > 0 {
					cmd.PrintErrf("Dropped %d unreadable image(s).\n", served.Evicted)
				}
				if err != nil {
					return err
				}
				if served.Recycled {
					cmd.PrintErrln("Every image was viewed; starting a new round.")
				}
				cmd.Println(served.Record.Path)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of images to draw")
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "Do not verify that drawn files are readable images")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := svc.Stats()
			if err != nil {
				return err
			}
			cmd.Printf("Ledger:   %s\n", svc.Ledger.Path())
			cmd.Printf("Total:    %d\n", st.Total)
			cmd.Printf("Viewed:   %d\n", st.Viewed)
			cmd.Printf("Unviewed: %d\n", st.Unviewed())
			return nil
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Mark every image unviewed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.ResetViewed(); err != nil {
				return err
			}
			cmd.Println("All images marked unviewed.")
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every record from the ledger (files are not touched)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !forceFlag {
				st, err := svc.Stats()
				if err != nil {
					return err
				}
				cmd.Printf("[DRY RUN] Would remove %d record(s). Use --force to clear the ledger.\n", st.Total)
				return nil
			}
			if err := svc.ClearLedger(); err != nil {
				return err
			}
			cmd.Println("Ledger cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Actually clear the ledger")
	return cmd
}

func newListCmd() *cobra.Command {
	var viewedOnly, unviewedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger records in natural path order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if viewedOnly && unviewedOnly {
				return errors.New("--viewed and --unviewed are mutually exclusive")
			}
			records, err := svc.Ledger.List()
			if err != nil {
				return err
			}
			sort.Slice(records, func(i, j int) bool {
				return natural.Less(records[i].Path, records[j].Path)
			})
			for _, rec := range records {
				if (viewedOnly && !rec.Viewed) || (unviewedOnly && rec.Viewed) {
					continue
				}
				mark := " "
				if rec.Viewed {
					mark = "x"
				}
				cmd.Printf("[%s] %s\n", mark, rec.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&viewedOnly, "viewed", false, "Only list viewed images")
	cmd.Flags().BoolVar(&unviewedOnly, "unviewed", false, "Only list unviewed images")
	return cmd
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove records whose file no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := svc.CleanDatabase()
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d record(s) for missing files.\n", removed)
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [image]",
		Short: "Show format, size and EXIF data of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := svc.Images.GetImageInfo(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Path:     %s\n", info.Path)
			cmd.Printf("Format:   %s\n", info.Format)
			cmd.Printf("Size:     %dx%d px, %d bytes\n", info.Width, info.Height, info.Size)
			cmd.Printf("Modified: %s\n", info.ModTime.Format("2006-01-02 15:04:05"))
			if rec, ok, err := svc.FindByPath(args[0]); err == nil && ok {
				cmd.Printf("Viewed:   %t\n", rec.Viewed)
			}
			if len(info.EXIFData) > 0 {
				keys := make([]string, 0, len(info.EXIFData))
				for k := range info.EXIFData {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				cmd.Println("EXIF:")
				for _, k := range keys {
					cmd.Printf("  %s: %s\n", k, info.EXIFData[k])
				}
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [image]",
		Short: "Move an indexed image to the " + trash.DisplayName() + " and drop its record",
		Long: `Move an indexed image to the ` + trash.DisplayName() + ` and remove it from the ledger.
Without --force nothing is changed; with --force you are asked to type 'delete'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, ok, err := svc.FindByPath(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not in the ledger", args[0])
			}
			cmd.Printf("%s: %s\n", trash.VerbPhrase(), rec.Path)
			if !forceFlag {
				cmd.Println("[DRY RUN] Nothing was moved. Use --force to delete.")
				return nil
			}

			cmd.Print("Type 'delete' to confirm and proceed: ")
			var response string
			fmt.Fscanln(cmd.InOrStdin(), &response)
			if strings.ToLower(strings.TrimSpace(response)) != "delete" {
				cmd.Println("Aborted.")
				return nil
			}
			if err := svc.DeleteImageFile(rec); err != nil {
				return err
			}
			cmd.Printf("Moved %s to the %s.\n", filepath.Base(rec.Path), trash.DisplayName())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Actually move the file")
	return cmd
}

// openService is the production ServiceFactory.
func openService(cfg config.Config, logger ledger.LoggerFunc) (*service.Service, error) {
	backend := cfg.LedgerBackend()
	dbPath := cfg.Ledger.Path
	if dbPath == "" {
		p, err := ledger.DefaultPath(backend)
		if err != nil {
			return nil, err
		}
		dbPath = p
	}
	l, err := ledger.Open(backend, dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	ix := indexer.New(l, scan.FileScannerImpl{}, cfg.ExtensionSet(), logger)
	return service.NewService(l, ix, trash.System{}, logger), nil
}

func main() {
	rootCmd := NewRootCmd(openService)
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
