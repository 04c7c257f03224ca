package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/program"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval [expression]",
		Short: "Print the parsed tree of an expression and its color at one point",
		Example: `  picasso eval "x + y" --x 0.3 --y -0.2
  picasso eval -f swirl.exp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := sourceArg(cmd, args)
			if err != nil {
				return err
			}
			x, _ := cmd.Flags().GetFloat64("x")
			y, _ := cmd.Flags().GetFloat64("y")
			t, _ := cmd.Flags().GetFloat64("t")

			env := expr.NewEnv(expr.WithImageDir(imagesDir(cmd)))
			env.Clock().Set(t)
			node, err := env.Parse(src)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, node)
			c := node.Evaluate(x, y)
			d := c.ToDisplay()
			fmt.Fprintf(out, "%s at (%g, %g) -> rgb(%d, %d, %d)\n", c, x, y, d.R, d.G, d.B)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the program from a .exp file")
	cmd.Flags().Float64("x", 0, "x coordinate")
	cmd.Flags().Float64("y", 0, "y coordinate")
	cmd.Flags().Float64("t", 0, "Value of t")
	return cmd
}

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens [expression]",
		Short: "Print the token stream of an expression",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := sourceArg(cmd, args)
			if err != nil {
				return err
			}
			tokens, err := expr.Tokenize(src)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tok := range tokens {
				fmt.Fprintf(out, "%4d  %-8s %s\n", tok.Pos, tok.Type, tok.Value)
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the program from a .exp file")
	return cmd
}

// sourceArg returns the program text from the single argument or --file.
func sourceArg(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("give either an expression or --file, not both")
	case file != "":
		return program.ReadFile(file)
	case len(args) == 1 && strings.TrimSpace(args[0]) != "":
		return args[0], nil
	default:
		return "", fmt.Errorf("an expression or --file is required")
	}
}
