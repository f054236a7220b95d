package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yuanying/epubpager/internal/book"
	"github.com/yuanying/epubpager/internal/reader"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <book.epub>",
		Short: "Print the package metadata, spine and content documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			defer opts.Close()

			bk, err := book.Open(opts.BookPath, opts.Logger)
			if err != nil {
				return err
			}
			defer bk.Close()

			writePackage(cmd.OutOrStdout(), bk)
			writeSpine(cmd.OutOrStdout(), bk)
			return nil
		},
	}
}

func writePackage(out io.Writer, bk *book.Book) {
	opf := bk.Package()
	tw := tabwriter.NewWriter(out, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "Package:\t%s (EPUB %s)\n", bk.OPFPath(), opf.Version)
	fmt.Fprintf(tw, "Title:\t%s\n", opf.Metadata.Title)
	fmt.Fprintf(tw, "Language:\t%s\n", opf.Metadata.Language)
	fmt.Fprintf(tw, "Identifier:\t%s\n", opf.Metadata.Identifier)
	for _, c := range opf.Metadata.Creators {
		if c.Role != "" {
			fmt.Fprintf(tw, "Creator:\t%s (%s)\n", c.Name, c.Role)
		} else {
			fmt.Fprintf(tw, "Creator:\t%s\n", c.Name)
		}
	}
	if opf.Metadata.Publisher != "" {
		fmt.Fprintf(tw, "Publisher:\t%s\n", opf.Metadata.Publisher)
	}
	fmt.Fprintf(tw, "Direction:\t%s\n", bk.Direction())
	fmt.Fprintf(tw, "Rendition:\tlayout=%s flow=%s spread=%s\n",
		orDefault(opf.Rendition.Layout, "reflowable"),
		orDefault(opf.Rendition.Flow, "auto"),
		orDefault(opf.Rendition.Spread, "auto"))
	fmt.Fprintf(tw, "TOC:\t%d entries\n", len(bk.TOC()))

	counts := map[string]int{}
	for _, item := range opf.Manifest {
		counts[item.MediaType]++
	}
	fmt.Fprintf(tw, "Manifest:\t%d items\n", len(opf.Manifest))
	for _, mt := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(tw, "\t  %s\t%d\n", mt, counts[mt])
	}
	tw.Flush()
}

func writeSpine(out io.Writer, bk *book.Book) {
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tLINEAR\tSPREAD\tHREF\tTITLE\tCSS\tIMAGES\tANCHORS")
	for _, seg := range reader.Classify(bk.Spine()) {
		for _, item := range seg.Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t", item.Index, seg.Kind, yesNo(item.Linear), orDefault(item.PageSpread, "-"), item.Href)
			content, err := bk.LoadContent(item)
			if err != nil {
				fmt.Fprintf(tw, "error: %v\t\t\t\n", err)
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", orDefault(content.Title, "-"), len(content.CSSLinks), len(content.ImageRefs), len(content.Anchors))
		}
	}
	tw.Flush()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
