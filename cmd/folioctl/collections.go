package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	collectionsCmd := &cobra.Command{Use: "collections", Short: "Collection operations"}

	// list
	listCmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "List the records of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(apiFlag, fmt.Sprintf("/api/collections/%s", args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	collectionsCmd.AddCommand(listCmd)

	// save
	var file string
	saveCmd := &cobra.Command{
		Use:   "save COLLECTION",
		Short: "Save a full collection snapshot from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var records []map[string]interface{}
			if err := json.Unmarshal(raw, &records); err != nil {
				return fmt.Errorf("file must hold a JSON array of records: %w", err)
			}
			payload := map[string]interface{}{"records": records}
			data, err := doPutJSON(apiFlag, fmt.Sprintf("/api/collections/%s", args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	saveCmd.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON array of records (required)")
	_ = saveCmd.MarkFlagRequired("file")
	collectionsCmd.AddCommand(saveCmd)

	// delete-record
	deleteCmd := &cobra.Command{
		Use:   "delete-record COLLECTION RECORD_ID",
		Short: "Delete a single record by persistent id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doDelete(apiFlag, fmt.Sprintf("/api/collections/%s/records/%s", args[0], args[1]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	collectionsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(collectionsCmd)
}
