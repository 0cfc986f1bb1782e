package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lotsort/internal/enrichment"
	"lotsort/internal/groups"
	"lotsort/internal/photo"
)

type imageView struct {
	Name       string                `json:"name"`
	CapturedAt time.Time             `json:"captured_at"`
	Source     photo.TimestampSource `json:"timestamp_source"`
}

type lotView struct {
	Lot         int         `json:"lot"`
	Images      []imageView `json:"images"`
	Description string      `json:"description,omitempty"`
	Error       string      `json:"error,omitempty"`
}

func imageViews(items []photo.Item) []imageView {
	views := make([]imageView, 0, len(items))
	for _, item := range items {
		views = append(views, imageView{Name: item.Image.Name, CapturedAt: item.CapturedAt, Source: item.Source})
	}
	return views
}

// lotViews numbers lots from 1. descriptions is keyed by group index.
func lotViews(p groups.Partition, descriptions map[int]string) []lotView {
	views := make([]lotView, 0, len(p))
	for i, group := range p {
		views = append(views, lotView{Lot: i + 1, Images: imageViews(group), Description: descriptions[i]})
	}
	return views
}

type describeView struct {
	Listings []lotView `json:"listings"`
	Failures []lotView `json:"failures,omitempty"`
}

func describeViews(outcome enrichment.Outcome) describeView {
	view := describeView{Listings: []lotView{}}
	for _, res := range outcome.Listings {
		view.Listings = append(view.Listings, lotView{Lot: res.GroupIndex + 1, Images: imageViews(res.Items), Description: res.Text})
	}
	for _, res := range outcome.Failures {
		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		view.Failures = append(view.Failures, lotView{Lot: res.GroupIndex + 1, Images: imageViews(res.Items), Error: msg})
	}
	return view
}

func renderPartition(cmd *cobra.Command, p groups.Partition) {
	rows := make([][]string, 0, p.ItemCount())
	fallbacks := 0
	for i, group := range p {
		for j, item := range group {
			lot := ""
			if j == 0 {
				lot = strconv.Itoa(i + 1)
			}
			if item.Source.IsFallback() {
				fallbacks++
			}
			rows = append(rows, []string{
				lot,
				item.Image.Name,
				item.CapturedAt.Format("2006-01-02 15:04:05"),
				string(item.Source),
			})
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Lot", "Photo", "Captured", "Source"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	fmt.Fprintf(out, "%d photos in %d lots\n", p.ItemCount(), len(p))
	if fallbacks > 0 {
		fmt.Fprintf(out, "%d photos had no EXIF capture time; file times were used\n", fallbacks)
	}
}

func renderOutcome(cmd *cobra.Command, outcome enrichment.Outcome) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if len(outcome.Listings) > 0 {
		rows := make([][]string, 0, len(outcome.Listings))
		for _, res := range outcome.Listings {
			rows = append(rows, []string{strconv.Itoa(res.GroupIndex + 1), strconv.Itoa(len(res.Items)), res.Text})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Lot", "Photos", "Description"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignLeft},
		))
	}
	if len(outcome.Failures) == 0 {
		return
	}
	for _, line := range renderSectionHeader("Failed lots", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, res := range outcome.Failures {
		names := make([]string, 0, len(res.Items))
		for _, item := range res.Items {
			names = append(names, item.Image.Name)
		}
		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		fmt.Fprintln(out, renderStatusLine("Lot "+strconv.Itoa(res.GroupIndex+1), statusError, msg, colorize))
		fmt.Fprintf(out, "%s%s\n", statusIndent+statusIndent, strings.Join(names, ", "))
	}
}
