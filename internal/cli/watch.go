package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/client"
)

type WatchOptions struct {
	ListOptions
	UserID string
}

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{ListOptions: ListOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow your project changes and reprint the page as it changes",
		Long: `Follow your private notification channel.

Each change is applied to the displayed page, the page cache is dropped,
and the page is fetched again and reprinted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := opts.UserID
			if userID == "" {
				userID = opts.DevUser
			}
			if userID == "" {
				return fmt.Errorf("--user-id is required with --token")
			}
			return watch(cmd, opts, userID)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.UserID, "user-id", "", "channel owner (defaults to --dev-user)")

	return cmd
}

func watch(cmd *cobra.Command, opts *WatchOptions, userID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := opts.logger(cmd.ErrOrStderr())
	c := opts.client()
	st := opts.store(c, logger)

	snap, err := st.Load(ctx, opts.key())
	if err != nil {
		return err
	}
	if err := printSnapshot(out, opts.Format, snap); err != nil {
		return err
	}

	sub := client.NewSubscriber(c, logger)
	return sub.Run(ctx, userID, func(n broadcast.Notification) {
		st.Apply(n)
		if err := printNotification(out, opts.Format, n); err != nil {
			logger.Warn("failed to print notification", "error", err)
		}
		snap, err := st.Load(ctx, st.Key())
		if err != nil {
			logger.Warn("failed to reload projects", "error", err)
			return
		}
		if err := printSnapshot(out, opts.Format, snap); err != nil {
			logger.Warn("failed to print projects", "error", err)
		}
	})
}
