package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/store"
)

func printSnapshot(w io.Writer, format string, snap store.Snapshot) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(snap)
	}

	page := snap.Projects
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCREATED")
	for _, p := range page.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d, %d projects\n", page.CurrentPage, page.LastPage, page.Total)
	return err
}

func printNotification(w io.Writer, format string, n broadcast.Notification) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(n)
	}
	_, err := fmt.Fprintf(w, "%s %s\n", n.Name, n.ProjectID())
	return err
}
