package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	epub "github.com/simp-lee/epubgen"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file.epub>",
	Short: "Check the container structure of an ePub",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	r, err := epub.Verify(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "title:    %s\n", r.Title)
	fmt.Fprintf(out, "version:  %s\n", r.Version)
	fmt.Fprintf(out, "package:  %s (%d items)\n", r.OPFPath, r.ManifestItems)
	fmt.Fprintf(out, "spine:    %s\n", strings.Join(r.Spine, ", "))
	for _, l := range r.NavLabels {
		fmt.Fprintf(out, "  - %s\n", l)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "warning:  %s\n", w)
	}
	return nil
}
