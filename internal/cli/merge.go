package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/ferag-backend/internal/graph/merge"
)

var (
	mergeOut    string
	mergeReport string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge two Turtle documents offline",
	Long: `Merge two Turtle documents the same way the pipeline merge stage does.

Examples:
  ferag merge triples prod_export.ttl extracted_triples.ttl -o merged.ttl
  ferag merge ontology prod_export.ttl extracted_ontology.ttl -o onto.ttl --report report.txt`,
}

var mergeTriplesCmd = &cobra.Command{
	Use:   "triples <older.ttl> <newer.ttl>",
	Short: "Merge instance triples; the second file wins description conflicts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := merge.TriplesFiles(args[0], args[1], mergeOut, mergeReport)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rep.String())
		return nil
	},
}

var mergeOntologyCmd = &cobra.Command{
	Use:   "ontology <a.ttl> <b.ttl>",
	Short: "Union two ontologies",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := merge.OntologiesFiles(args[0], args[1], mergeOut, mergeReport)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rep.String())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{mergeTriplesCmd, mergeOntologyCmd} {
		c.Flags().StringVarP(&mergeOut, "out", "o", "", "output Turtle file")
		c.Flags().StringVar(&mergeReport, "report", "", "optional text report path")
		_ = c.MarkFlagRequired("out")
		mergeCmd.AddCommand(c)
	}
}
