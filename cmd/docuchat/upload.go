package main

import (
	"context"
	"fmt"
	"time"

	"docuchat/internal/client"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf> [more.pdf ...]",
	Short: "Upload PDFs to the server without entering the chat",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(flagServer)
		for _, path := range args {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			resp, err := c.Upload(ctx, path)
			cancel()
			if err != nil {
				return fmt.Errorf("upload %s: %w", path, err)
			}
			fmt.Printf("%s (%d chunks total)\n", resp.Message, resp.DocumentCount)
		}
		return nil
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List documents ingested by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(flagServer)
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		resp, err := c.Documents(ctx)
		if err != nil {
			return err
		}
		if len(resp.Documents) == 0 {
			fmt.Println("No documents ingested yet.")
			return nil
		}
		for _, doc := range resp.Documents {
			fmt.Printf("%-40s  %-8s  %d chunks\n", doc.Name, doc.Source, doc.ChunkCount)
		}
		fmt.Printf("%d documents, %d chunks\n", len(resp.Documents), resp.ChunkCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(docsCmd)
}
