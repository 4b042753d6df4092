package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"threadx/internal/seed"
)

func newSeedCmd() *cobra.Command {
	opts := seed.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the configured store with sample users, follows and threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := seed.NewSeeder(a.repos, a.svcs, opts.Seed).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		},
	}
	cmd.Flags().IntVarP(&opts.Users, "users", "u", opts.Users, "Number of users to create")
	cmd.Flags().IntVarP(&opts.Threads, "threads", "t", opts.Threads, "Number of threads to create")
	cmd.Flags().IntVar(&opts.MaxFollows, "max-follows", opts.MaxFollows, "Most users each seeded user follows")
	cmd.Flags().IntVar(&opts.MaxLikes, "max-likes", opts.MaxLikes, "Most likes per thread")
	cmd.Flags().Float64Var(&opts.PrivateRatio, "private-ratio", opts.PrivateRatio, "Share of private threads")
	cmd.Flags().StringVar(&opts.Password, "password", opts.Password, "Password of every seeded account")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	return cmd
}
