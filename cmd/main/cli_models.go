package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [name]",
		Short: "Print statistics of a stored model as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.modelName(args)
			return a.withStore(func(st store.Store) error {
				model, err := st.Load(cmd.Context(), name)
				if err != nil {
					return err
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(model.Stats())
			})
		},
	}
}

func (a *app) newPruneCmd() *cobra.Command {
	var (
		minFreq int
		into    string
	)
	cmd := &cobra.Command{
		Use:   "prune [name]",
		Short: "Remove rare transitions from a stored model",
		Long: `Remove every transition seen at most --min-freq times, and the states
left without transitions. The result replaces the model unless --into names
another model.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.modelName(args)
			if into == "" {
				into = name
			}
			return a.withStore(func(st store.Store) error {
				model, err := st.Load(cmd.Context(), name)
				if err != nil {
					return err
				}
				pruned, err := markov.Prune(model, minFreq)
				if err != nil {
					return fmt.Errorf("failed to prune model %q: %w", name, err)
				}
				if err = st.Save(cmd.Context(), into, pruned); err != nil {
					return err
				}
				before, after := model.Stats(), pruned.Stats()
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned model %q into %q: %d -> %d transitions, %d -> %d states\n",
					name, into, before.Transitions, after.Transitions, before.States, after.States)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&minFreq, "min-freq", 1, "remove transitions with a count at or below this value")
	cmd.Flags().StringVar(&into, "into", "", "store the pruned model under this name instead")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Write a stored model as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.modelName(args)
			return a.withStore(func(st store.Store) error {
				model, err := st.Load(cmd.Context(), name)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					return markov.Encode(cmd.OutOrStdout(), model)
				}
				data, err := markov.Marshal(model)
				if err != nil {
					return err
				}
				if err = atomic.WriteFile(output, bytes.NewReader(data)); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				a.logger.Info("Model exported", "model_name", name, "path", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	return cmd
}

func (a *app) newImportCmd() *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "import <name> <file>",
		Short: "Store a model from a JSON file",
		Long: `Read a model in its JSON form from file ("-" for stdin) and store it under
name. With --merge, the counts are added to the model already stored under
name instead of replacing it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				defer f.Close()
				r = f
			}
			model, err := markov.Decode(r)
			if err != nil {
				return fmt.Errorf("failed to read model from %s: %w", path, err)
			}

			return a.withStore(func(st store.Store) error {
				if merge {
					existing, err := st.Load(cmd.Context(), name)
					switch {
					case err == nil:
						if model, err = markov.Merge(existing, model); err != nil {
							return fmt.Errorf("failed to merge into model %q: %w", name, err)
						}
					case !errors.Is(err, store.ErrNotFound):
						return err
					}
				}
				if err := st.Save(cmd.Context(), name, model); err != nil {
					return err
				}
				stats := model.Stats()
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "imported model %q: order %d, %d states, %d transitions\n",
					name, stats.Order, stats.States, stats.Transitions)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "add counts to the stored model instead of replacing it")
	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(st store.Store) error {
				names, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					if _, err = fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st store.Store) error {
				return st.Delete(cmd.Context(), args[0])
			})
		},
	}
}
