package main

import (
	"fmt"

	"github.com/CTAG07/quotegen/pkg/corpus"
	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func (a *app) newBuildCmd() *cobra.Command {
	var (
		patterns []string
		order    int
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "build [name]",
		Short: "Train a model on the corpus and store it",
		Long: `Train a model on the configured corpus files and store it under name
(default: model.name from the config), replacing any model of that name.

Examples:
  quotegen build                                  # Corpus and order from the config
  quotegen build office --corpus 'data/*.txt' --order 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.modelName(args)
			if len(patterns) == 0 {
				patterns = a.config.Corpus.Paths
			}
			if !cmd.Flags().Changed("order") {
				order = a.config.Model.Order
			}

			src, err := corpus.Open(patterns, a.config.Corpus.MaxBytes)
			if err != nil {
				return fmt.Errorf("failed to open corpus: %w", err)
			}
			defer src.Close()
			a.logger.Info("Training model",
				"model_name", name,
				"order", order,
				"files", len(src.Files()),
			)

			opts := []markov.BuildOption{}
			if a.config.Model.WellFormed {
				opts = append(opts, markov.WithSentenceFilter(markov.WellFormed))
			}
			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions(-1,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("Training "+name),
					progressbar.OptionShowCount(),
					progressbar.OptionSpinnerType(14),
					progressbar.OptionClearOnFinish(),
				)
				opts = append(opts, markov.WithProgress(func(sentences int) {
					_ = bar.Set(sentences)
				}))
			}

			model, err := a.newGenerator().Train(cmd.Context(), src, order, opts...)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("failed to train model %q: %w", name, err)
			}

			err = a.withStore(func(st store.Store) error {
				return st.Save(cmd.Context(), name, model)
			})
			if err != nil {
				return err
			}

			stats := model.Stats()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "built model %q: order %d, %d sentences, %d states, %d transitions\n",
				name, stats.Order, stats.Sentences, stats.States, stats.Transitions)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&patterns, "corpus", nil, "corpus glob patterns (default: corpus.paths from the config)")
	cmd.Flags().IntVar(&order, "order", 0, "number of words in each state (default: model.order from the config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show training progress")
	return cmd
}
