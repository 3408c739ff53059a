/*
Package markov builds, persists and samples word-level Markov chain models
for generating short quotes.

A Model is built once from a corpus of sentences and is immutable afterwards,
so a single Model can be shared by any number of goroutines. Models round trip
through a sorted, indented JSON form (see Encode and Decode) that is easy to
inspect and diff.

	g := markov.NewGenerator(markov.NewDefaultTokenizer())
	model, err := g.Train(ctx, corpus, 3)
	if err != nil {
		return err
	}
	quote, err := g.Sample(ctx, model, 100)

Sampling draws each next word with probability proportional to how often it
followed the current state in the corpus, and rejects whole sentences that do
not fit the requested length instead of truncating them.
*/
package markov
