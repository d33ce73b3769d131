package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/chaos-io/depth2layer/layer"
)

// writeJSON path 为空或 "-" 时写到标准输出
func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printLayers(w io.Writer, layers []layer.Layer) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPIXELS\tBOUNDS\tDEPTH\tTEXTURE")
	for _, l := range layers {
		texture := "-"
		if l.Texture != nil {
			texture = *l.Texture
		}
		fmt.Fprintf(tw, "%s\t%d\t%d,%d %dx%d\t%.3f - %.3f\t%s\n",
			l.Name,
			l.Mask.Count(),
			l.Bounds.X, l.Bounds.Y, l.Bounds.Width, l.Bounds.Height,
			l.DepthRange.Lower, l.DepthRange.Upper,
			texture,
		)
	}
	tw.Flush()
}
