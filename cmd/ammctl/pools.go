package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ammEngine/internal/model"
	"ammEngine/internal/storage/pebble"
)

func newPoolsCmd() *cobra.Command {
	pools := &cobra.Command{
		Use:   "pools",
		Short: "Export or import the pebble pool store as JSONL",
	}
	pools.PersistentFlags().String("pebble-path", "./data/pools", "pebble directory for the pool store")

	export := &cobra.Command{
		Use:   "export",
		Short: "Write every stored pool as one JSON line",
		RunE:  runPoolsExport,
	}
	export.Flags().String("out", "", "output JSONL path (stdout when empty)")

	imp := &cobra.Command{
		Use:   "import",
		Short: "Write pools from a JSONL file, overwriting existing records",
		RunE:  runPoolsImport,
	}
	imp.Flags().String("in", "", "input JSONL path")

	pools.AddCommand(export, imp)
	return pools
}

func runPoolsExport(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("pebble-path")
	outPath, _ := cmd.Flags().GetString("out")

	db, err := pebble.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	pools, err := db.Pools(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	for _, pool := range pools {
		if err := enc.Encode(pool); err != nil {
			return fmt.Errorf("encode pool %s: %w", pool.ID.Hex(), err)
		}
	}
	return nil
}

func runPoolsImport(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("pebble-path")
	inPath, _ := cmd.Flags().GetString("in")
	if inPath == "" {
		return fmt.Errorf("in is required")
	}

	f, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var pools []model.Pool
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var pool model.Pool
		if err := json.Unmarshal(scanner.Bytes(), &pool); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		pools = append(pools, pool)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	db, err := pebble.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PutPools(cmd.Context(), pools); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d pools\n", len(pools))
	return nil
}
