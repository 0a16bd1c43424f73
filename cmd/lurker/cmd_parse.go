package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shahar-caura/lurker/internal/classify"
	"github.com/shahar-caura/lurker/internal/item"
)

type parseResult struct {
	Shape   classify.Shape       `yaml:"shape"`
	Trigger string               `yaml:"trigger,omitempty"`
	Item    *item.Item           `yaml:"item,omitempty"`
	Offer   *classify.TradeOffer `yaml:"offer,omitempty"`
	Error   string               `yaml:"error,omitempty"`
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Classify and parse clipboard text from a file or stdin",
		Long: `Classify text the way a capture would and print the result as YAML.

Reads stdin when no file is given or the file is "-". Parse failures are
reported in the output; only I/O errors produce a non-zero exit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close()
				r = f
			}

			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			res := parseText(string(data))
			a.logger.Debug("parsed text", "shape", res.Shape, "bytes", len(data))

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("writing result: %w", err)
			}
			return enc.Close()
		},
	}
}

func parseText(text string) parseResult {
	res := parseResult{Shape: classify.Classify(text)}
	switch res.Shape {
	case classify.ItemShaped:
		it, err := item.Parse(text)
		if err != nil {
			res.Error = err.Error()
			break
		}
		res.Item = &it
	case classify.TradeShaped:
		if t, ok := classify.MatchTrade(text); ok {
			res.Trigger = t.Name
		}
		res.Offer = &classify.TradeOffer{Raw: text}
	}
	return res
}
