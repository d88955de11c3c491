package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mmsi/orderdesk/pkg/router"
)

// PrintRoutes writes the route table as aligned columns.
func PrintRoutes(w io.Writer, routes []router.Route) error {
	if len(routes) == 0 {
		_, err := fmt.Fprintln(w, "No named routes registered.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME")
	fmt.Fprintln(tw, "------\t----\t----")
	for _, r := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Method, r.Path, r.Name)
	}
	return tw.Flush()
}
