/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/peretran/internal/store"
)

var (
	checkpointDBPath string
	checkpointMaxAge int
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage resumable translation job checkpoints",
	Long:  `List, delete, and clean up crash-safe checkpoints left by interrupted translate jobs. Resume a job with translate --resume <job-id>.`,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(checkpointDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		summaries, err := db.ListCheckpoints(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}

		if len(summaries) == 0 {
			fmt.Println("No checkpoints found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tINPUT\tCOMPLETED\tTOTAL\tUPDATED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				s.JobID, s.InputFile, s.Completed, s.TotalChunks, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var checkpointDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a checkpoint by job ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(checkpointDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.DeleteCheckpoint(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete checkpoint: %w", err)
		}
		fmt.Printf("Deleted checkpoint: %s\n", args[0])
		return nil
	},
}

var checkpointCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove checkpoints not updated within the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(checkpointDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		n, err := db.CleanupOldCheckpoints(context.Background(), checkpointMaxAge)
		if err != nil {
			return fmt.Errorf("failed to clean up checkpoints: %w", err)
		}
		fmt.Printf("Removed %d stale checkpoint(s) older than %d day(s).\n", n, checkpointMaxAge)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)

	checkpointCmd.PersistentFlags().StringVar(&checkpointDBPath, "db", "./data/peretran.db", "Database path")

	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointDeleteCmd)
	checkpointCmd.AddCommand(checkpointCleanupCmd)
	checkpointCleanupCmd.Flags().IntVar(&checkpointMaxAge, "older-than", 7, "Remove checkpoints not updated within this many days")
}
