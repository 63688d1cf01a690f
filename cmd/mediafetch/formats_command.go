package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediafetch/internal/catalog"
	"mediafetch/internal/selector"
)

var allIntents = []selector.Intent{selector.IntentAudioOnly, selector.IntentVideoOnly, selector.IntentVideoAudio}

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "formats URL",
		Short: "List the variants available for a URL",
		Long: `Resolve URL and print every usable variant. The Picked column shows which
intent would select each variant under the current configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cat, err := newResolver(cfg, logger).Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			picks := selectionPicks(cat, selectionOptions(cfg))
			if jsonOutput {
				return writeJSON(cmd, formatsJSON(cat, picks))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title: %s\n", cat.Title)
			fmt.Fprint(out, renderFormats(cat, picks))
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print variants as JSON")
	return cmd
}

// selectionPicks maps a catalog index to the intents that select it.
func selectionPicks(cat *catalog.Catalog, opts selector.Options) map[int][]string {
	picks := make(map[int][]string)
	for _, intent := range allIntents {
		sel, err := selector.Select(cat, intent, opts)
		if err != nil {
			continue
		}
		for _, chosen := range sel.Variants() {
			if idx := variantIndex(cat, chosen); idx >= 0 {
				picks[idx] = append(picks[idx], string(intent))
			}
		}
	}
	return picks
}

func variantIndex(cat *catalog.Catalog, v catalog.Variant) int {
	for i, candidate := range cat.Variants {
		if candidate.ID == v.ID && candidate.Kind == v.Kind && candidate.Container == v.Container {
			return i
		}
	}
	return -1
}

func renderFormats(cat *catalog.Catalog, picks map[int][]string) string {
	rows := make([][]string, 0, len(cat.Variants))
	for i, v := range cat.Variants {
		height := ""
		if v.Height > 0 {
			height = strconv.Itoa(v.Height) + "p"
		}
		bitrate := ""
		if v.Bitrate > 0 {
			bitrate = fmt.Sprintf("%d kbps", v.Bitrate/1000)
		}
		size := ""
		if v.ContentLength > 0 {
			size = humanBytes(v.ContentLength)
		}
		rows = append(rows, []string{
			v.ID,
			string(v.Kind),
			v.Container,
			strings.Trim(v.VideoCodec+" "+v.AudioCodec, " "),
			height,
			bitrate,
			size,
			strings.Join(picks[i], ", "),
		})
	}
	cols := []column{
		{Title: "ID"},
		{Title: "Kind"},
		{Title: "Container"},
		{Title: "Codecs"},
		{Title: "Height", Numeric: true},
		{Title: "Bitrate", Numeric: true},
		{Title: "Size", Numeric: true},
		{Title: "Picked"},
	}
	return renderTable(cols, rows)
}

type variantJSON struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Container     string   `json:"container"`
	VideoCodec    string   `json:"video_codec,omitempty"`
	AudioCodec    string   `json:"audio_codec,omitempty"`
	Quality       int64    `json:"quality"`
	Height        int      `json:"height,omitempty"`
	Bitrate       int      `json:"bitrate,omitempty"`
	ContentLength int64    `json:"content_length,omitempty"`
	PickedFor     []string `json:"picked_for,omitempty"`
}

func formatsJSON(cat *catalog.Catalog, picks map[int][]string) map[string]any {
	variants := make([]variantJSON, 0, len(cat.Variants))
	for i, v := range cat.Variants {
		variants = append(variants, variantJSON{
			ID:            v.ID,
			Kind:          string(v.Kind),
			Container:     v.Container,
			VideoCodec:    v.VideoCodec,
			AudioCodec:    v.AudioCodec,
			Quality:       v.Quality,
			Height:        v.Height,
			Bitrate:       v.Bitrate,
			ContentLength: v.ContentLength,
			PickedFor:     picks[i],
		})
	}
	return map[string]any{"url": cat.URL, "title": cat.Title, "variants": variants}
}
