package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chaos-io/depth2layer/layer"
	"github.com/chaos-io/depth2layer/scene"
)

var (
	mockWidth  int
	mockHeight int
	mockOut    string
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Print the demo concentric layers as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		layers, err := layer.Mock(mockWidth, mockHeight)
		if err != nil {
			return err
		}
		return writeJSON(mockOut, scene.LayersData{Width: mockWidth, Height: mockHeight, Layers: layers})
	},
}

func init() {
	mockCmd.Flags().IntVar(&mockWidth, "width", 512, "image width in pixels")
	mockCmd.Flags().IntVar(&mockHeight, "height", 512, "image height in pixels")
	mockCmd.Flags().StringVarP(&mockOut, "out", "o", "-", "output file (- for stdout)")
	rootCmd.AddCommand(mockCmd)
}
