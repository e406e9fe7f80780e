package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/persistence"
	"github.com/talgya/forge-factory/internal/production"
)

func newSaveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Inspect and move saved games",
	}
	cmd.AddCommand(newSaveInspectCommand())
	cmd.AddCommand(newSaveListCommand())
	cmd.AddCommand(newSaveExportCommand())
	cmd.AddCommand(newSaveImportCommand())
	return cmd
}

func newSaveInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize a save file (defaults to the configured save path)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			path := cfg.Storage.SavePath
			if len(args) == 1 {
				path = args[0]
			}

			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			raw, err := persistence.ReadFile(path)
			if err != nil {
				return err
			}
			g, err := persistence.Decoder{Catalog: cat}.Game(string(raw))
			if err != nil {
				return err
			}
			printGame(cmd, path, info.Size(), len(raw), info.ModTime(), g)
			return nil
		},
	}
}

func printGame(cmd *cobra.Command, path string, onDisk int64, size int, modified time.Time, g *persistence.Game) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Save:      %s\n", path)
	fmt.Fprintf(out, "Size:      %s on disk, %s decoded\n", humanize.Bytes(uint64(onDisk)), humanize.Bytes(uint64(size)))
	fmt.Fprintf(out, "Written:   %s\n", humanize.Time(modified))
	fmt.Fprintf(out, "Wallet:    %s\n", humanize.Comma(int64(g.Wallet)))
	fmt.Fprintf(out, "Inventory: %s units\n", humanize.Comma(int64(g.Inventory.Count())))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nPOSITION\tKIND\tPROGRAM\tDURABILITY\tBROKEN\tITEMS")
	for _, rec := range g.Machines {
		m := rec.Machine
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%t\t%d\n",
			rec.Position, m.Kind(), programName(m), m.Durability(), m.MaxDurability(), m.Breaked(), m.Inventory().Count())
	}
	w.Flush()

	for _, err := range g.Skipped {
		fmt.Fprintf(out, "skipped: %v\n", err)
	}
}

func programName(m *production.Machine) string {
	switch {
	case m.Recipe() != nil:
		return string(m.Recipe().Result.Kind)
	case m.Resource() != nil:
		return string(m.Resource().Kind)
	}
	return "-"
}

func newSaveListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List database save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			db, err := persistence.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			slots, err := db.ListSlots()
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No save slots.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tWALLET\tMACHINES\tTICK\tSIZE\tUPDATED")
			for _, s := range slots {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					s.Name, humanize.Comma(int64(s.Wallet)), s.Machines, humanize.Comma(s.Tick),
					humanize.Bytes(uint64(s.Size)), humanize.Time(s.Updated()))
			}
			return w.Flush()
		},
	}
}

func newSaveExportCommand() *cobra.Command {
	var slot, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a database slot to a save file (.zst compresses)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			db, err := persistence.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			body, err := db.LoadSlot(slot)
			if err != nil {
				return err
			}
			if err := persistence.WriteFile(out, []byte(body)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported slot %q to %s (%s)\n", slot, out, humanize.Bytes(uint64(len(body))))
			return nil
		},
	}
	cmd.Flags().StringVar(&slot, "slot", "", "Slot name")
	cmd.Flags().StringVar(&out, "out", "", "Output file")
	cmd.MarkFlagRequired("slot")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newSaveImportCommand() *cobra.Command {
	var slot, in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a save file in a database slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			raw, err := persistence.ReadFile(in)
			if err != nil {
				return err
			}
			g, err := persistence.Decoder{Catalog: cat, Strict: true}.Game(string(raw))
			if err != nil {
				return err
			}

			db, err := persistence.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			saved, err := db.SaveSlot(slotFor(slot, cat, g), string(raw))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into slot %q (%s)\n", in, saved.Name, saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&slot, "slot", "", "Slot name")
	cmd.Flags().StringVar(&in, "in", "", "Save file to import")
	cmd.MarkFlagRequired("slot")
	cmd.MarkFlagRequired("in")
	return cmd
}

func slotFor(name string, cat *catalog.Catalog, g *persistence.Game) persistence.Slot {
	return persistence.Slot{
		Name:     name,
		Digest:   cat.Digest(),
		Wallet:   g.Wallet,
		Machines: len(g.Machines),
	}
}
