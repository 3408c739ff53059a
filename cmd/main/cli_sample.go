package main

import (
	"encoding/json"
	"fmt"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
	"github.com/spf13/cobra"
)

func (a *app) newSampleCmd() *cobra.Command {
	var (
		maxChars    int
		maxAttempts int
		minChars    int
		start       string
		count       int
		wrap        int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "sample [name]",
		Short: "Print generated quotes",
		Long: `Sample sentences from a stored model and print them as quotes, wrapped
into short lines and attributed to a random author.

Examples:
  quotegen sample                       # One quote from the default model
  quotegen sample office -n 5 --max-chars 80
  quotegen sample --start "I am" --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.modelName(args)
			flags := cmd.Flags()
			if !flags.Changed("max-chars") {
				maxChars = a.config.Model.MaxChars
			}
			if !flags.Changed("max-attempts") {
				maxAttempts = a.config.Model.MaxAttempts
			}
			if !flags.Changed("min-chars") {
				minChars = a.config.Model.MinChars
			}
			if !flags.Changed("wrap") {
				wrap = a.config.Quote.WrapWidth
			}

			authors, err := NewAuthorPicker(a.config.Quote.AuthorsPath, a.config.Quote.MaxAuthorLen, a.config.Quote.DefaultAuthor)
			if err != nil {
				return err
			}

			var model *markov.Model
			err = a.withStore(func(st store.Store) error {
				model, err = st.Load(cmd.Context(), name)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to load model %q: %w", name, err)
			}

			gen := a.newGenerator()
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				sentence, err := gen.Sample(cmd.Context(), model, maxChars,
					markov.WithMaxAttempts(maxAttempts),
					markov.WithMinChars(minChars),
					markov.WithStart(start),
				)
				if err != nil {
					return err
				}
				quote := Quote{
					Model:  name,
					Quote:  sentence,
					Lines:  WrapLines(sentence, wrap),
					Author: authors.Pick(),
				}
				if asJSON {
					if err = json.NewEncoder(out).Encode(quote); err != nil {
						return err
					}
					continue
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				if _, err = fmt.Fprintln(out, quote.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "longest accepted sentence in characters, 0 for no limit (default: model.max_chars)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "walks to try before giving up (default: model.max_attempts)")
	cmd.Flags().IntVar(&minChars, "min-chars", 0, "shortest accepted sentence in characters (default: model.min_chars)")
	cmd.Flags().StringVar(&start, "start", "", "words every quote must begin with")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of quotes to print")
	cmd.Flags().IntVar(&wrap, "wrap", 0, "wrap quotes into lines of this many characters, 0 for one line (default: quote.wrap_width)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per quote")
	return cmd
}
