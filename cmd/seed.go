/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goblog/apiserver/internal/logger"
	"github.com/goblog/apiserver/internal/seed"
	"github.com/spf13/cobra"
)

var seedBaseURL string
var seedUserIDs string

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate a running server with demo data",
}

var seedUsersCmd = &cobra.Command{
	Use:   "users <count>",
	Short: "Create random users via the legacy API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Init()

		count, err := strconv.Atoi(args[0])
		if err != nil || count <= 0 {
			return fmt.Errorf("count must be a positive integer, got %q", args[0])
		}

		seeder := seed.New(seedBaseURL)
		ids, err := seeder.Users(cmd.Context(), count)
		if err != nil {
			return err
		}
		fmt.Printf("created %d users: %v\n", len(ids), ids)
		return nil
	},
}

var seedPostsCmd = &cobra.Command{
	Use:   "posts <file>",
	Short: "Create posts from a JSON file via the legacy API",
	Long: `Create posts from a JSON file via the legacy API. The file must
contain a top-level "posts" array of {"title", "text"} objects. Each
post is assigned a random author from --user-ids.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Init()

		ids, err := parseUserIDs(seedUserIDs)
		if err != nil {
			return err
		}

		seeder := seed.New(seedBaseURL)
		return seeder.Posts(cmd.Context(), args[0], ids)
	},
}

func parseUserIDs(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("--user-ids is required, e.g. --user-ids 1,2,3")
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedUsersCmd)
	seedCmd.AddCommand(seedPostsCmd)

	seedCmd.PersistentFlags().StringVar(&seedBaseURL, "base-url", "http://127.0.0.1:8080", "base URL of the running server")
	seedPostsCmd.Flags().StringVar(&seedUserIDs, "user-ids", "", "comma-separated user ids to assign posts to")
}
