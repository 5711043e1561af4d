package cli

import (
	"github.com/spf13/cobra"

	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/store"
)

// ListOptions holds the listing filters shared by list and watch.
type ListOptions struct {
	*RootOptions
	Page      int
	Search    string
	Status    string
	Sort      string
	Direction string
}

func (o *ListOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.Page, "page", 1, "page number")
	cmd.Flags().StringVar(&o.Search, "search", "", "match name or description")
	cmd.Flags().StringVar(&o.Status, "status", "", "pending, in-progress or completed")
	cmd.Flags().StringVar(&o.Sort, "sort", "", "name, status or created_at")
	cmd.Flags().StringVar(&o.Direction, "direction", "", "asc or desc")
}

func (o *ListOptions) key() store.CacheKey {
	return store.CacheKey{
		Page:          o.Page,
		Search:        o.Search,
		Status:        model.ProjectStatus(o.Status),
		SortField:     model.SortField(o.Sort),
		SortDirection: model.SortDirection(o.Direction),
	}
}

func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "Print one page of your projects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := opts.store(opts.client(), opts.logger(cmd.ErrOrStderr()))
			snap, err := st.Load(cmd.Context(), opts.key())
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), opts.Format, snap)
		},
	}
	opts.bind(cmd)

	return cmd
}
